// Package wardrobe holds the threadline client's domain model.
//
// # Types
//
//   - Category: closed set TOP, BOTTOM, OUTERWEAR, DRESS, SHOES
//   - ClothingItem: slim garment value exchanged inside outfits (id, image
//     filename, category); equality is by id
//   - Clothing: full closet record with fit, occasion, color and tags
//   - Outfit: items bucketed by category; every bucket is addressable and
//     an absent bucket is simply empty
//   - Collection: the recommendation set with a cyclic cursor
//   - DeclutterItem, FeedItem, FeedPage, Utilization, HistoryOutfit,
//     FormOptions: read models for the secondary screens
//
// # Editing Outfits
//
// Swap, Add and Remove are pure functions. They never mutate their input
// and return a new Outfit:
//
//	o, found, err := wardrobe.Swap(o, wardrobe.Top, oldID, replacement)
//	o, err = wardrobe.Add(o, item)
//	o, found = wardrobe.Remove(o, id)
//
// A missing id is not an error; callers get found=false and can tell the
// user the edit had no effect. Putting an item into the wrong category is
// an InvariantViolation, and an id that already appears anywhere in the
// outfit is a DuplicateID. Both reject the edit.
//
// # Errors
//
// Error carries an ErrorKind and matches the kind's sentinel through
// errors.Is, so callers can branch with errors.Is(err, wardrobe.ErrEmptyResult)
// or KindOf(err).
package wardrobe
