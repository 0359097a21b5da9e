// Package colorutil provides the annotation palette and color helpers.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Common colors used by the renderer and the report.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	LightGray = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	DarkGray  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// Swatch is one palette entry: a display name plus stroke and fill tokens.
type Swatch struct {
	Name   string
	Stroke color.RGBA
	Fill   color.RGBA // translucent, drawn under the stroke
}

// Palette is the fixed, ordered set of swatches cycled through by new polygons.
type Palette []Swatch

// named maps palette names to stroke colors.
var named = map[string]color.RGBA{
	"red":    {R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
	"blue":   {R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF},
	"green":  {R: 0x22, G: 0xC5, B: 0x5E, A: 0xFF},
	"orange": {R: 0xF9, G: 0x73, B: 0x16, A: 0xFF},
	"purple": {R: 0xA8, G: 0x55, B: 0xF7, A: 0xFF},
	"yellow": {R: 0xEA, G: 0xB3, B: 0x08, A: 0xFF},
	"pink":   {R: 0xEC, G: 0x48, B: 0x99, A: 0xFF},
	"teal":   {R: 0x14, G: 0xB8, B: 0xA6, A: 0xFF},
}

// DefaultNames is the reference five-entry palette.
var DefaultNames = []string{"Red", "Blue", "Green", "Orange", "Purple"}

// DefaultPalette returns the reference palette.
func DefaultPalette() Palette {
	p, _ := NewPalette(DefaultNames)
	return p
}

// NewPalette builds a palette from color names ("red") or hex strings ("#ff0000").
// Hex entries are named after the hex string itself.
func NewPalette(names []string) (Palette, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("palette must have at least one entry")
	}
	p := make(Palette, 0, len(names))
	for _, n := range names {
		stroke, err := ParseColor(n)
		if err != nil {
			return nil, err
		}
		p = append(p, Swatch{
			Name:   displayName(n),
			Stroke: stroke,
			Fill:   WithAlpha(stroke, 0x40),
		})
	}
	return p, nil
}

// Size returns the number of swatches.
func (p Palette) Size() int { return len(p) }

// At returns the swatch for index i. Out-of-range indices wrap.
func (p Palette) At(i int) Swatch {
	if len(p) == 0 {
		return Swatch{Name: "Region", Stroke: DarkGray, Fill: WithAlpha(DarkGray, 0x40)}
	}
	i %= len(p)
	if i < 0 {
		i += len(p)
	}
	return p[i]
}

// ParseColor accepts a known color name or a #rrggbb hex string.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := named[strings.ToLower(s)]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		var r, g, b uint8
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err == nil {
			return color.RGBA{R: r, G: g, B: b, A: 0xFF}, nil
		}
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

// WithAlpha returns c with its alpha replaced. Channels are premultiplied
// so the result stays a valid color.RGBA.
func WithAlpha(c color.RGBA, alpha uint8) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(uint16(v) * uint16(alpha) / 0xFF) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: alpha}
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func displayName(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") || s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
