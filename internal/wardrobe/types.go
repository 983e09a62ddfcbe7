package wardrobe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeclutterItem is a rarely worn garment the backend suggests removing.
type DeclutterItem struct {
	ID          int64   `json:"id"`
	ImgFilename string  `json:"img_filename"`
	WearCount   int     `json:"wear_counts"`
	Recent      *string `json:"recent"`
}

// WearText renders the wear count for display.
func (d DeclutterItem) WearText() string {
	switch d.WearCount {
	case 0:
		return "Never worn"
	case 1:
		return "Worn once"
	default:
		return fmt.Sprintf("Worn %d times", d.WearCount)
	}
}

// LastWorn returns the most recent wear time, or zero.
func (d DeclutterItem) LastWorn() time.Time {
	if d.Recent == nil {
		return time.Time{}
	}
	return ParseTime(*d.Recent)
}

// FeedItem is another user's logged outfit.
type FeedItem struct {
	ID            int64      `json:"id"`
	ImgFilename   string     `json:"img_filename"`
	DateWorn      string     `json:"date_worn"`
	Username      string     `json:"username"`
	ClothingItems []Clothing `json:"clothing_items"`
}

// ParsedDateWorn returns DateWorn as a time, or zero.
func (f FeedItem) ParsedDateWorn() time.Time {
	return ParseTime(f.DateWorn)
}

// FeedPage is one page of the feed plus the cursor for the next one.
type FeedPage struct {
	Items      []FeedItem `json:"outfits"`
	NextCursor *string    `json:"next_cursor"`
}

// HasMore reports whether another page exists.
func (p FeedPage) HasMore() bool {
	return p.NextCursor != nil && *p.NextCursor != ""
}

// Fraction decodes a utilization value sent either as a number or a
// numeric string. Null and unparseable values decode to zero.
type Fraction float64

func (f *Fraction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = Fraction(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Fraction(v)
	return nil
}

// Percent renders the fraction as a whole percentage.
func (f Fraction) Percent() int {
	return int(float64(f) * 100)
}

// RewornItem is a garment worn more than once this month.
type RewornItem struct {
	ID          int64  `json:"id"`
	ImgFilename string `json:"img_filename"`
	Wears       int    `json:"wears"`
}

// Utilization mirrors GET /utilization/get.
type Utilization struct {
	Total      Fraction
	ByCategory map[Category]Fraction
	Rewears    map[Category][]RewornItem
}

// IsEmpty reports whether nothing was worn this month.
func (u Utilization) IsEmpty() bool {
	if u.Total != 0 {
		return false
	}
	for _, v := range u.ByCategory {
		if v != 0 {
			return false
		}
	}
	return true
}

// HasRewears reports whether any category has a reworn item.
func (u Utilization) HasRewears() bool {
	for _, items := range u.Rewears {
		if len(items) > 0 {
			return true
		}
	}
	return false
}

// TopRewear returns the most worn item in c.
func (u Utilization) TopRewear(c Category) (RewornItem, bool) {
	items := u.Rewears[c]
	if len(items) == 0 {
		return RewornItem{}, false
	}
	return items[0], true
}

func (u *Utilization) UnmarshalJSON(data []byte) error {
	var raw struct {
		Utilization map[string]Fraction     `json:"utilization"`
		Rewears     map[string][]RewornItem `json:"rewears"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Utilization{
		ByCategory: make(map[Category]Fraction, len(Categories)),
		Rewears:    make(map[Category][]RewornItem, len(Categories)),
	}
	for key, v := range raw.Utilization {
		if strings.EqualFold(key, "TOTAL") {
			out.Total = v
			continue
		}
		if c, err := ParseCategory(key); err == nil {
			out.ByCategory[c] = v
		}
	}
	for key, items := range raw.Rewears {
		if c, err := ParseCategory(key); err == nil && len(items) > 0 {
			out.Rewears[c] = items
		}
	}
	*u = out
	return nil
}

// HistoryOutfit is a previously logged outfit.
type HistoryOutfit struct {
	ID        int64
	Timestamp string
	Outfit    Outfit
}

// ParsedTimestamp returns when the outfit was worn, or zero.
func (h HistoryOutfit) ParsedTimestamp() time.Time {
	return ParseTime(h.Timestamp)
}

type historyItem struct {
	ClothingID int64  `json:"clothing_id"`
	Img        string `json:"img"`
}

func (h *HistoryOutfit) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out HistoryOutfit
	if v, ok := raw["outfit_id"]; ok {
		if err := json.Unmarshal(v, &out.ID); err != nil {
			return fmt.Errorf("decode outfit_id: %w", err)
		}
	}
	if v, ok := raw["timestamp"]; ok {
		if err := json.Unmarshal(v, &out.Timestamp); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
	}
	var items []ClothingItem
	for _, c := range Categories {
		v, ok := raw[string(c)]
		if !ok || string(v) == "null" {
			continue
		}
		var bucket []historyItem
		if err := json.Unmarshal(v, &bucket); err != nil {
			return fmt.Errorf("decode %s: %w", c, err)
		}
		for _, item := range bucket {
			items = append(items, ClothingItem{ID: item.ClothingID, Image: item.Img, Category: c})
		}
	}
	outfit, err := NewOutfit(items...)
	if err != nil {
		return err
	}
	out.Outfit = outfit
	*h = out
	return nil
}

// Subtypes lists the subtypes available for one category.
type Subtypes struct {
	Type     Category `json:"type"`
	Subtypes []string `json:"subtypes"`
}

// FormOptions mirrors GET /categories/get: the choices offered when
// registering a clothing item.
type FormOptions struct {
	Types    []string   `json:"type"`
	Subtypes []Subtypes `json:"subtype"`
	Fits     []string   `json:"fit"`
	Occasion []string   `json:"occasion"`
	Precip   []string   `json:"precip"`
	Weather  []string   `json:"weather"`
}

// SubtypesFor returns the subtypes for c.
func (f FormOptions) SubtypesFor(c Category) []string {
	for _, s := range f.Subtypes {
		if s.Type == c {
			return s.Subtypes
		}
	}
	return nil
}
