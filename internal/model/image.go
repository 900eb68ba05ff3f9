package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ImageKind identifies which representation an Image holds
type ImageKind int

const (
	ImageNone ImageKind = iota
	ImageURL
	ImageEmbedded
)

func (k ImageKind) String() string {
	switch k {
	case ImageURL:
		return "url"
	case ImageEmbedded:
		return "base64"
	default:
		return "none"
	}
}

// Image is either a remote URL or an embedded data string. The fields are
// unexported so a value can only be built through NewURLImage or
// NewEmbeddedImage and always has exactly one active representation.
type Image struct {
	kind  ImageKind
	value string
}

// NewURLImage returns an image pointing at an absolute URL
func NewURLImage(url string) Image {
	return Image{kind: ImageURL, value: url}
}

// NewEmbeddedImage returns an image carrying a self-describing data string
// such as "data:image/png;base64,iVBOR..."
func NewEmbeddedImage(data string) Image {
	return Image{kind: ImageEmbedded, value: data}
}

func (i Image) Kind() ImageKind { return i.kind }
func (i Image) Value() string   { return i.value }
func (i Image) IsZero() bool    { return i.kind == ImageNone }
func (i Image) IsURL() bool     { return i.kind == ImageURL }
func (i Image) IsEmbedded() bool {
	return i.kind == ImageEmbedded
}

// Equal reports whether both images hold the same representation
func (i Image) Equal(o Image) bool {
	return i.kind == o.kind && i.value == o.value
}

// Src returns a value usable as an HTML img src
func (i Image) Src() string {
	return i.value
}

// imageJSON is the persisted shape: {"type": "url"|"base64", "value": "..."}
type imageJSON struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (i Image) MarshalJSON() ([]byte, error) {
	if i.kind == ImageNone {
		return []byte("null"), nil
	}
	return json.Marshal(imageJSON{Type: i.kind.String(), Value: i.value})
}

func (i *Image) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*i = Image{}
		return nil
	}

	var raw imageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case "url":
		*i = NewURLImage(raw.Value)
	case "base64":
		*i = NewEmbeddedImage(raw.Value)
	default:
		return fmt.Errorf("unknown image type %q", raw.Type)
	}
	return nil
}
