package wardrobe

import (
	"strings"
	"time"
)

// ClothingItem is the slim garment form exchanged in outfits.
type ClothingItem struct {
	ID       int64    `json:"id"`
	Image    string   `json:"img"`
	Category Category `json:"type"`
}

// Equal compares by id only.
func (i ClothingItem) Equal(other ClothingItem) bool {
	return i.ID == other.ID
}

// ImageURL joins the media base URL and the item's filename.
func (i ClothingItem) ImageURL(base string) string {
	return JoinMediaURL(base, i.Image)
}

// JoinMediaURL concatenates base and filename with exactly one slash.
func JoinMediaURL(base, filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ""
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return filename
	}
	return base + "/" + strings.TrimLeft(filename, "/")
}

// Tag is a free-form label attached to a garment.
type Tag struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Clothing is the full garment record returned by the closet endpoint.
type Clothing struct {
	ID          int64    `json:"id"`
	Category    Category `json:"type"`
	Subtype     string   `json:"subtype,omitempty"`
	ImgFilename string   `json:"img_filename"`
	ColorL      float64  `json:"color_lstar"`
	ColorA      float64  `json:"color_astar"`
	ColorB      float64  `json:"color_bstar"`
	Fit         string   `json:"fit"`
	Layerable   bool     `json:"layerable"`
	Precip      string   `json:"precip,omitempty"`
	Occasion    string   `json:"occasion"`
	Winter      bool     `json:"winter"`
	CreatedAt   string   `json:"created_at"`
	Tags        []Tag    `json:"tags"`
}

// Item projects the record onto the outfit item form.
func (c Clothing) Item() ClothingItem {
	return ClothingItem{ID: c.ID, Image: c.ImgFilename, Category: c.Category}
}

// ParsedCreatedAt returns the creation time, or zero when unparseable.
func (c Clothing) ParsedCreatedAt() time.Time {
	return ParseTime(c.CreatedAt)
}

// ParseTime accepts the RFC3339 variants the backend emits.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
