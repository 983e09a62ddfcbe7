package backend

import (
	"github.com/google/uuid"

	"github.com/shleen/threadline/internal/wardrobe"
)

// ConfirmRequest is the body of POST /outfit/post. IdempotencyKey travels
// as a header and stays the same across user retries of one confirmation.
type ConfirmRequest struct {
	Username       string  `json:"username"`
	ClothingIDs    []int64 `json:"clothing_ids"`
	IdempotencyKey string  `json:"-"`
}

// NewConfirmRequest builds a confirmation for o with a fresh key.
func NewConfirmRequest(username string, o wardrobe.Outfit) ConfirmRequest {
	return ConfirmRequest{
		Username:       username,
		ClothingIDs:    o.IDs(),
		IdempotencyKey: uuid.NewString(),
	}
}

// RGB is an 8-bit color triple.
type RGB struct {
	R int `json:"r" validate:"min=0,max=255"`
	G int `json:"g" validate:"min=0,max=255"`
	B int `json:"b" validate:"min=0,max=255"`
}

// ColorResult is the outcome of POST /image/process.
type ColorResult struct {
	Primary   RGB
	Secondary *RGB
	Image     []byte
}

// Image is an upload payload read from disk.
type Image struct {
	Filename string `validate:"required"`
	Data     []byte `validate:"required,min=1"`
}

// NewClothing is the form for POST /clothing/create.
type NewClothing struct {
	Username  string            `validate:"required,alphanum,min=3"`
	Category  wardrobe.Category `validate:"required,oneof=TOP BOTTOM OUTERWEAR DRESS SHOES"`
	Subtype   string
	Fit       string `validate:"required"`
	Occasion  string `validate:"required"`
	Winter    bool
	Precip    string
	Layerable bool
	Tags      []string `validate:"dive,required"`
	Primary   *RGB
	Secondary *RGB
	Image     Image
}

type closetResponse struct {
	Items []wardrobe.Clothing `json:"items"`
}

type historyResponse struct {
	Outfits []wardrobe.HistoryOutfit `json:"outfits"`
}

type declutterResponse struct {
	Declutter []wardrobe.DeclutterItem `json:"declutter"`
}

type declutterRequest struct {
	IDs []int64 `json:"ids"`
}

type createResponse struct {
	ID int64 `json:"id"`
}

type processResponse struct {
	Colors      string `json:"colors"`
	ImageBase64 string `json:"image_base64"`
}
