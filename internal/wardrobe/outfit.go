package wardrobe

import (
	"encoding/json"
	"fmt"
)

// Outfit groups clothing items by category. Every category is addressable;
// a category with no items has an empty bucket. The zero value is an empty
// outfit.
type Outfit struct {
	buckets map[Category][]ClothingItem
}

// NewOutfit groups items into their category buckets, preserving order,
// and validates the result.
func NewOutfit(items ...ClothingItem) (Outfit, error) {
	o := Outfit{buckets: make(map[Category][]ClothingItem, len(Categories))}
	for _, item := range items {
		o.buckets[item.Category] = append(o.buckets[item.Category], item)
	}
	if err := o.Validate(); err != nil {
		return Outfit{}, err
	}
	return o, nil
}

// MustOutfit is NewOutfit for fixtures; it panics on invalid input.
func MustOutfit(items ...ClothingItem) Outfit {
	o, err := NewOutfit(items...)
	if err != nil {
		panic(err)
	}
	return o
}

// Bucket returns a copy of the items in category c, never nil.
func (o Outfit) Bucket(c Category) []ClothingItem {
	src := o.buckets[c]
	dup := make([]ClothingItem, len(src))
	copy(dup, src)
	return dup
}

// Items returns every item in category display order.
func (o Outfit) Items() []ClothingItem {
	items := make([]ClothingItem, 0, o.Len())
	for _, c := range Categories {
		items = append(items, o.buckets[c]...)
	}
	return items
}

// IDs returns item ids in display order.
func (o Outfit) IDs() []int64 {
	items := o.Items()
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func (o Outfit) Len() int {
	n := 0
	for _, items := range o.buckets {
		n += len(items)
	}
	return n
}

func (o Outfit) IsEmpty() bool {
	return o.Len() == 0
}

// Locate finds the category and bucket index holding id.
func (o Outfit) Locate(id int64) (Category, int, bool) {
	for _, c := range Categories {
		for i, item := range o.buckets[c] {
			if item.ID == id {
				return c, i, true
			}
		}
	}
	return "", -1, false
}

// Clone returns a deep copy.
func (o Outfit) Clone() Outfit {
	dup := Outfit{buckets: make(map[Category][]ClothingItem, len(Categories))}
	for c, items := range o.buckets {
		if len(items) == 0 {
			continue
		}
		cp := make([]ClothingItem, len(items))
		copy(cp, items)
		dup.buckets[c] = cp
	}
	return dup
}

// Equal reports structural equality: same items, same order, per bucket.
func (o Outfit) Equal(other Outfit) bool {
	for _, c := range Categories {
		a, b := o.buckets[c], other.buckets[c]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// Validate checks that every item sits in its own category's bucket and
// that ids are unique across the outfit.
func (o Outfit) Validate() error {
	seen := make(map[int64]Category, o.Len())
	for c, items := range o.buckets {
		if !c.Valid() {
			return NewError(KindInvariantViolation, "validate outfit", fmt.Errorf("unknown category %q", c))
		}
		for _, item := range items {
			if item.Category != c {
				return NewError(KindInvariantViolation, "validate outfit",
					fmt.Errorf("item %d has category %s but sits in %s", item.ID, item.Category, c))
			}
			if prev, dup := seen[item.ID]; dup {
				return NewError(KindDuplicateID, "validate outfit",
					fmt.Errorf("item %d appears in %s and %s", item.ID, prev, c))
			}
			seen[item.ID] = c
		}
	}
	return nil
}

// withBucket returns a copy of o with bucket c replaced.
func (o Outfit) withBucket(c Category, items []ClothingItem) Outfit {
	dup := o.Clone()
	if len(items) == 0 {
		delete(dup.buckets, c)
		return dup
	}
	dup.buckets[c] = items
	return dup
}

type outfitWire struct {
	Clothes []ClothingItem `json:"clothes"`
}

// MarshalJSON emits {"clothes": [...]} in display order.
func (o Outfit) MarshalJSON() ([]byte, error) {
	return json.Marshal(outfitWire{Clothes: o.Items()})
}

// UnmarshalJSON accepts the recommendation form {"clothes": [...]} and the
// category-keyed form {"TOP": [...], "BOTTOM": [...]}. In the keyed form an
// item without a type takes the key's category, and an item whose type
// names another category is rejected.
func (o *Outfit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var items []ClothingItem
	if clothes, ok := raw["clothes"]; ok {
		if err := json.Unmarshal(clothes, &items); err != nil {
			return fmt.Errorf("decode clothes: %w", err)
		}
	} else {
		for _, c := range Categories {
			bucket, ok := raw[string(c)]
			if !ok || string(bucket) == "null" {
				continue
			}
			var decoded []ClothingItem
			if err := json.Unmarshal(bucket, &decoded); err != nil {
				return fmt.Errorf("decode %s: %w", c, err)
			}
			for _, item := range decoded {
				switch item.Category {
				case "":
					item.Category = c
				case c:
				default:
					return NewError(KindInvariantViolation, "decode outfit",
						fmt.Errorf("item %d is %s but listed under %s", item.ID, item.Category, c))
				}
				items = append(items, item)
			}
		}
	}

	parsed, err := NewOutfit(items...)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
