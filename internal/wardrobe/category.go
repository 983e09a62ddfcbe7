package wardrobe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the slot a clothing item fills in an outfit.
type Category string

const (
	Top       Category = "TOP"
	Bottom    Category = "BOTTOM"
	Outerwear Category = "OUTERWEAR"
	Dress     Category = "DRESS"
	Shoes     Category = "SHOES"
)

// Categories lists every category in display order.
var Categories = []Category{Top, Bottom, Outerwear, Dress, Shoes}

var categoryLabels = map[Category]string{
	Top:       "Tops",
	Bottom:    "Bottoms",
	Outerwear: "Outerwear",
	Dress:     "Dresses",
	Shoes:     "Shoes",
}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the plural display name ("Tops").
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Singular is the title-cased single form ("Top").
func (c Category) Singular() string {
	if !c.Valid() {
		return string(c)
	}
	s := strings.ToLower(string(c))
	return strings.ToUpper(s[:1]) + s[1:]
}

// UnmarshalJSON rejects unknown categories.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
