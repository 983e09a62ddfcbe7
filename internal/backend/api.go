package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shleen/threadline/internal/validate"
	"github.com/shleen/threadline/internal/wardrobe"
)

// API lists the backend operations. *Client implements it; tests and
// consumers depend on narrower interfaces.
type API interface {
	FetchRecommendations(ctx context.Context, username string, lat, lon float64) (wardrobe.Collection, error)
	ConfirmOutfit(ctx context.Context, req ConfirmRequest) error
	LogOutfit(ctx context.Context, username string, ids []int64) error
	FetchCloset(ctx context.Context, username string, category wardrobe.Category) ([]wardrobe.Clothing, error)
	FetchHistory(ctx context.Context, username string) ([]wardrobe.HistoryOutfit, error)
	FetchDeclutter(ctx context.Context, username string) ([]wardrobe.DeclutterItem, error)
	PostDeclutter(ctx context.Context, ids []int64) error
	FetchFeed(ctx context.Context, cursor string, pageSize int) (wardrobe.FeedPage, error)
	FetchUtilization(ctx context.Context, username string) (wardrobe.Utilization, error)
	FetchCategories(ctx context.Context) (wardrobe.FormOptions, error)
	CreateClothing(ctx context.Context, item NewClothing, opts ...UploadOption) (int64, error)
	RemoveBackground(ctx context.Context, username string, img Image) ([]byte, error)
	ProcessImage(ctx context.Context, username string, img Image) (ColorResult, error)
}

var _ API = (*Client)(nil)

// FetchRecommendations asks for outfits suited to the user's location.
// A response without outfits is an EmptyResult error.
func (c *Client) FetchRecommendations(ctx context.Context, username string, lat, lon float64) (wardrobe.Collection, error) {
	const op = "fetch recommendations"
	values := url.Values{}
	values.Set("username", username)
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	rel := &url.URL{Path: "/recommendation/get", RawQuery: values.Encode()}

	var payload wardrobe.RecommendationResponse
	if err := c.getJSON(ctx, op, rel, &payload); err != nil {
		return wardrobe.Collection{}, err
	}
	if len(payload.Outfits) == 0 {
		return wardrobe.Collection{}, wardrobe.NewError(wardrobe.KindEmptyResult, op, nil)
	}
	return wardrobe.NewCollection(payload.Outfits), nil
}

// ConfirmOutfit records that the user wore the outfit. It succeeds only on
// a 2xx response.
func (c *Client) ConfirmOutfit(ctx context.Context, req ConfirmRequest) error {
	if err := validate.Username(req.Username); err != nil {
		return wardrobe.NewError(wardrobe.KindInvariantViolation, "confirm outfit", err)
	}
	if len(req.ClothingIDs) == 0 {
		return wardrobe.NewError(wardrobe.KindInvariantViolation, "confirm outfit", errors.New("outfit has no items"))
	}
	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	_, err := c.postJSON(ctx, "confirm outfit", "/outfit/post", req, header)
	return err
}

// LogOutfit records a manually selected set of items as today's outfit.
func (c *Client) LogOutfit(ctx context.Context, username string, ids []int64) error {
	return c.ConfirmOutfit(ctx, ConfirmRequest{Username: username, ClothingIDs: ids})
}

// FetchCloset lists the user's clothing. An empty category returns
// everything.
func (c *Client) FetchCloset(ctx context.Context, username string, category wardrobe.Category) ([]wardrobe.Clothing, error) {
	values := url.Values{}
	values.Set("username", username)
	if category != "" {
		values.Set("type", string(category))
	}
	var payload closetResponse
	if err := c.getJSON(ctx, "fetch closet", &url.URL{Path: "/closet/get", RawQuery: values.Encode()}, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// FetchHistory lists previously logged outfits.
func (c *Client) FetchHistory(ctx context.Context, username string) ([]wardrobe.HistoryOutfit, error) {
	values := url.Values{}
	values.Set("username", username)
	var payload historyResponse
	if err := c.getJSON(ctx, "fetch history", &url.URL{Path: "/outfits/get", RawQuery: values.Encode()}, &payload); err != nil {
		return nil, err
	}
	return payload.Outfits, nil
}

// FetchDeclutter lists rarely worn items.
func (c *Client) FetchDeclutter(ctx context.Context, username string) ([]wardrobe.DeclutterItem, error) {
	values := url.Values{}
	values.Set("username", username)
	var payload declutterResponse
	if err := c.getJSON(ctx, "fetch declutter", &url.URL{Path: "/declutter/get", RawQuery: values.Encode()}, &payload); err != nil {
		return nil, err
	}
	return payload.Declutter, nil
}

// PostDeclutter removes items from the closet.
func (c *Client) PostDeclutter(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.postJSON(ctx, "post declutter", "/declutter/post", declutterRequest{IDs: ids}, nil)
	return err
}

// FetchFeed returns one page of the public feed. An empty cursor requests
// the first page.
func (c *Client) FetchFeed(ctx context.Context, cursor string, pageSize int) (wardrobe.FeedPage, error) {
	values := url.Values{}
	if cursor != "" {
		values.Set("cursor", cursor)
	}
	if pageSize > 0 {
		values.Set("page_size", strconv.Itoa(pageSize))
	}
	var payload wardrobe.FeedPage
	if err := c.getJSON(ctx, "fetch feed", &url.URL{Path: "/feed/get", RawQuery: values.Encode()}, &payload); err != nil {
		return wardrobe.FeedPage{}, err
	}
	return payload, nil
}

// FetchUtilization returns this month's closet utilization.
func (c *Client) FetchUtilization(ctx context.Context, username string) (wardrobe.Utilization, error) {
	values := url.Values{}
	values.Set("username", username)
	var payload wardrobe.Utilization
	if err := c.getJSON(ctx, "fetch utilization", &url.URL{Path: "/utilization/get", RawQuery: values.Encode()}, &payload); err != nil {
		return wardrobe.Utilization{}, err
	}
	return payload, nil
}

// FetchCategories returns the choices for the clothing form.
func (c *Client) FetchCategories(ctx context.Context) (wardrobe.FormOptions, error) {
	var payload wardrobe.FormOptions
	if err := c.getJSON(ctx, "fetch categories", &url.URL{Path: "/categories/get"}, &payload); err != nil {
		return wardrobe.FormOptions{}, err
	}
	return payload, nil
}

// UploadOption configures a multipart upload.
type UploadOption func(*uploadConfig)

type uploadConfig struct {
	wrap func(r io.Reader, size int64) io.Reader
}

// WithProgress wraps the request body, e.g. to drive a progress bar.
func WithProgress(wrap func(r io.Reader, size int64) io.Reader) UploadOption {
	return func(u *uploadConfig) {
		u.wrap = wrap
	}
}

// CreateClothing registers a new clothing item and returns its id, or 0
// when the backend does not report one.
func (c *Client) CreateClothing(ctx context.Context, item NewClothing, opts ...UploadOption) (int64, error) {
	const op = "create clothing"
	if err := validate.Struct(item); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := ValidateImage(item.Image); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var f form
	f.add("username", item.Username)
	f.add("type", string(item.Category))
	f.addIf("subtype", item.Subtype)
	f.add("fit", item.Fit)
	f.add("occasion", item.Occasion)
	f.add("winter", strconv.FormatBool(item.Winter))
	f.addIf("precip", item.Precip)
	f.add("layerable", strconv.FormatBool(item.Layerable))
	for _, tag := range item.Tags {
		f.add("tags", tag)
	}
	if item.Primary != nil {
		f.add("red", strconv.Itoa(item.Primary.R))
		f.add("green", strconv.Itoa(item.Primary.G))
		f.add("blue", strconv.Itoa(item.Primary.B))
	}
	if item.Secondary != nil {
		f.add("red_secondary", strconv.Itoa(item.Secondary.R))
		f.add("green_secondary", strconv.Itoa(item.Secondary.G))
		f.add("blue_secondary", strconv.Itoa(item.Secondary.B))
	}
	if err := f.setFile("image", item.Image); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	body, err := c.upload(ctx, op, "/clothing/create", f, opts...)
	if err != nil {
		return 0, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, nil
	}
	var payload createResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, nil
	}
	return payload.ID, nil
}

// RemoveBackground returns the image with its background removed.
func (c *Client) RemoveBackground(ctx context.Context, username string, img Image) ([]byte, error) {
	const op = "remove background"
	f, err := imageForm(username, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.upload(ctx, op, "/background/remove", f)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, wardrobe.NewError(wardrobe.KindEmptyResult, op, nil)
	}
	return body, nil
}

// ProcessImage extracts the dominant colors and returns the processed image.
func (c *Client) ProcessImage(ctx context.Context, username string, img Image) (ColorResult, error) {
	const op = "process image"
	f, err := imageForm(username, img)
	if err != nil {
		return ColorResult{}, fmt.Errorf("%s: %w", op, err)
	}
	body, err := c.upload(ctx, op, "/image/process", f)
	if err != nil {
		return ColorResult{}, err
	}
	var payload processResponse
	if err := decode(op, body, &payload); err != nil {
		return ColorResult{}, err
	}
	return parseColorResult(op, payload)
}

func imageForm(username string, img Image) (form, error) {
	var f form
	if err := validate.Username(username); err != nil {
		return f, err
	}
	if err := ValidateImage(img); err != nil {
		return f, err
	}
	f.add("username", username)
	if err := f.setFile("image", img); err != nil {
		return f, err
	}
	return f, nil
}

func (c *Client) upload(ctx context.Context, op, path string, f form, opts ...UploadOption) ([]byte, error) {
	var cfg uploadConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	data, contentType, err := f.encode()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var body io.Reader = bytes.NewReader(data)
	if cfg.wrap != nil {
		body = cfg.wrap(body, int64(len(data)))
	}
	header := http.Header{}
	header.Set("Content-Type", contentType)
	header.Set("Accept", "*/*")
	return c.sendWithHeader(ctx, op, http.MethodPost, &url.URL{Path: path}, body, header)
}

func parseColorResult(op string, payload processResponse) (ColorResult, error) {
	var colors [][]int
	if err := json.Unmarshal([]byte(payload.Colors), &colors); err != nil {
		return ColorResult{}, wardrobe.NewError(wardrobe.KindDecode, op, fmt.Errorf("decode colors: %w", err))
	}
	if len(colors) == 0 {
		return ColorResult{}, wardrobe.NewError(wardrobe.KindEmptyResult, op, errors.New("no colors extracted"))
	}
	var out ColorResult
	primary, err := toRGB(colors[0])
	if err != nil {
		return ColorResult{}, wardrobe.NewError(wardrobe.KindDecode, op, err)
	}
	out.Primary = primary
	if len(colors) > 1 {
		secondary, err := toRGB(colors[1])
		if err != nil {
			return ColorResult{}, wardrobe.NewError(wardrobe.KindDecode, op, err)
		}
		out.Secondary = &secondary
	}
	if payload.ImageBase64 != "" {
		img, err := base64.StdEncoding.DecodeString(payload.ImageBase64)
		if err != nil {
			return ColorResult{}, wardrobe.NewError(wardrobe.KindDecode, op, fmt.Errorf("decode image: %w", err))
		}
		out.Image = img
	}
	return out, nil
}

func toRGB(v []int) (RGB, error) {
	if len(v) != 3 {
		return RGB{}, fmt.Errorf("color %v: want 3 components", v)
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return RGB{}, fmt.Errorf("color %v: component out of range", v)
		}
	}
	return RGB{R: v[0], G: v[1], B: v[2]}, nil
}
