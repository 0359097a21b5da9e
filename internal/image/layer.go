package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"mammo-annotator/pkg/geometry"
)

// Layer is a decoded image together with the reference it came from.
type Layer struct {
	Ref    string
	Format string
	Image  image.Image
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Bounds returns the image extent in image coordinates.
func (l *Layer) Bounds() geometry.Rect {
	return geometry.Rect{Width: float64(l.Width()), Height: float64(l.Height())}
}

// Load decodes an image file.
func Load(path string) (*Layer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	l, err := Decode(file)
	if err != nil {
		return nil, err
	}
	l.Ref = path
	return l, nil
}

// Decode reads any registered format.
func Decode(r io.Reader) (*Layer, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Layer{Format: format, Image: img}, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (*Layer, error) {
	return Decode(bytes.NewReader(data))
}

// SupportedFormats returns the file extensions that can be opened.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".tiff", ".tif", ".webp", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	return slices.Contains(SupportedFormats(), strings.ToLower(filepath.Ext(path)))
}

// FileFilter returns a file filter string for use in file dialogs.
func FileFilter() string {
	return "Image Files (*" + strings.Join(SupportedFormats(), ", *") + ")"
}
