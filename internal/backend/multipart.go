package backend

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes is the largest image the backend accepts.
const MaxImageBytes = 10 << 20

var (
	ErrUnsupportedImage = errors.New("image must be png or jpeg")
	ErrImageTooLarge    = fmt.Errorf("image exceeds %d MB limit", MaxImageBytes>>20)
)

// DetectImageType returns the MIME type of data, or ErrUnsupportedImage
// when it is not png or jpeg.
func DetectImageType(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/png"):
		return "image/png", nil
	case mt.Is("image/jpeg"):
		return "image/jpeg", nil
	}
	return "", fmt.Errorf("%w (got %s)", ErrUnsupportedImage, mt.String())
}

// ValidateImage checks type and size before upload.
func ValidateImage(img Image) error {
	if len(img.Data) == 0 {
		return errors.New("image is empty")
	}
	if len(img.Data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	_, err := DetectImageType(img.Data)
	return err
}

// form accumulates multipart fields. Repeated keys are kept in order.
type form struct {
	fields []formField
	file   *formFile
}

type formField struct {
	key, value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func (f *form) add(key, value string) {
	f.fields = append(f.fields, formField{key, value})
}

func (f *form) addIf(key, value string) {
	if strings.TrimSpace(value) != "" {
		f.add(key, value)
	}
}

func (f *form) setFile(field string, img Image) error {
	ct, err := DetectImageType(img.Data)
	if err != nil {
		return err
	}
	f.file = &formFile{field: field, filename: img.Filename, contentType: ct, data: img.Data}
	return nil
}

// encode renders the form and returns the body and its content type.
func (f *form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if err := w.WriteField(fld.key, fld.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", fld.key, err)
		}
	}
	if f.file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.file.field, f.file.filename))
		h.Set("Content-Type", f.file.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(f.file.data); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
