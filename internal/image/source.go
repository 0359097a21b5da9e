// Package image resolves image references (file paths, data URLs, http URLs),
// decodes them, and loads them asynchronously for the surface and the report.
package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/url"
	"strings"
)

var ErrUnsupportedSource = errors.New("unsupported image source")

// Kind classifies an image reference.
type Kind int

const (
	KindFile Kind = iota + 1
	KindDataURL
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDataURL:
		return "data-url"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Source is a resolved image reference.
type Source struct {
	Ref  string
	Kind Kind
	// Location is the file path or URL; empty for data URLs.
	Location string
}

// Resolve classifies ref.
func Resolve(ref string) (Source, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return Source{}, fmt.Errorf("%w: empty reference", ErrUnsupportedSource)
	case strings.HasPrefix(ref, "data:"):
		return Source{Ref: ref, Kind: KindDataURL}, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return Source{Ref: ref, Kind: KindHTTP, Location: ref}, nil
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
		}
		return Source{Ref: ref, Kind: KindFile, Location: u.Path}, nil
	case strings.Contains(ref, "://"):
		return Source{}, fmt.Errorf("%w: %q", ErrUnsupportedSource, ref)
	default:
		return Source{Ref: ref, Kind: KindFile, Location: ref}, nil
	}
}

// DecodeDataURL returns the payload and media type of a data URL.
func DecodeDataURL(ref string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data URL", ErrUnsupportedSource)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URL", ErrUnsupportedSource)
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
		}
		return data, mediaType, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
	}
	return []byte(s), mediaType, nil
}

// EncodeDataURL encodes img as a PNG data URL.
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeJPEG encodes img as JPEG for embedding in documents.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
