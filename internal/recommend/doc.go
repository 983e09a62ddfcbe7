// Package recommend holds the recommendation session behind the outfit
// view.
//
// A Session owns the current wardrobe.Collection. Fetch resolves the
// location, asks the backend for outfits and swaps the collection in
// atomically. Starting a new Fetch cancels the previous one, and any
// result that arrives after it was superseded is dropped with ErrStale.
//
// Edits (Swap, Add, Remove) go through the wardrobe engine against the
// current outfit only. Navigating or editing resets the confirmation
// state, which otherwise moves none -> pending -> confirmed or failed as
// the backend answers.
package recommend
