package wardrobe

import "encoding/json"

// Collection is an ordered set of candidate outfits with a cursor. The
// cursor is always in [0, Len()) when the collection is non-empty.
type Collection struct {
	outfits []Outfit
	current int
}

// NewCollection copies outfits and starts at index 0.
func NewCollection(outfits []Outfit) Collection {
	dup := make([]Outfit, len(outfits))
	for i, o := range outfits {
		dup[i] = o.Clone()
	}
	return Collection{outfits: dup}
}

func (c Collection) Len() int {
	return len(c.outfits)
}

func (c Collection) IsEmpty() bool {
	return len(c.outfits) == 0
}

// Index is the current position, or -1 when empty.
func (c Collection) Index() int {
	if c.IsEmpty() {
		return -1
	}
	return c.current
}

// Current returns the outfit under the cursor.
func (c Collection) Current() (Outfit, bool) {
	if c.IsEmpty() {
		return Outfit{}, false
	}
	return c.outfits[c.current].Clone(), true
}

// At returns the outfit at i.
func (c Collection) At(i int) (Outfit, bool) {
	if i < 0 || i >= len(c.outfits) {
		return Outfit{}, false
	}
	return c.outfits[i].Clone(), true
}

// Next advances cyclically.
func (c Collection) Next() Collection {
	if c.IsEmpty() {
		return c
	}
	c.current = (c.current + 1) % len(c.outfits)
	return c
}

// Prev steps back cyclically.
func (c Collection) Prev() Collection {
	if c.IsEmpty() {
		return c
	}
	c.current = (c.current - 1 + len(c.outfits)) % len(c.outfits)
	return c
}

// Replace writes o into the current slot.
func (c Collection) Replace(o Outfit) Collection {
	if c.IsEmpty() {
		return c
	}
	dup := make([]Outfit, len(c.outfits))
	copy(dup, c.outfits)
	dup[c.current] = o.Clone()
	c.outfits = dup
	return c
}

// Outfits returns a copy of every outfit.
func (c Collection) Outfits() []Outfit {
	dup := make([]Outfit, len(c.outfits))
	for i, o := range c.outfits {
		dup[i] = o.Clone()
	}
	return dup
}

// RecommendationResponse mirrors GET /recommendation/get.
type RecommendationResponse struct {
	Outfits []Outfit `json:"outfits"`
}

func (r RecommendationResponse) MarshalJSON() ([]byte, error) {
	outfits := r.Outfits
	if outfits == nil {
		outfits = []Outfit{}
	}
	return json.Marshal(struct {
		Outfits []Outfit `json:"outfits"`
	}{outfits})
}
