package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"mammo-annotator/pkg/colorutil"
)

// bannerBlue matches the report header.
var bannerBlue = color.NRGBA{R: 0x1E, G: 0x3A, B: 0x8A, A: 0xFF}

// AnnotatorTheme is a dark reading-room theme. Focus and selection follow
// the first region color so highlighted controls match the newest outline.
type AnnotatorTheme struct {
	colors map[fyne.ThemeColorName]color.Color
	sizes  map[fyne.ThemeSizeName]float32
}

var _ fyne.Theme = (*AnnotatorTheme)(nil)

// NewTheme builds the theme for palette. An empty palette uses the default one.
func NewTheme(palette colorutil.Palette) *AnnotatorTheme {
	if palette.Size() == 0 {
		palette = colorutil.DefaultPalette()
	}
	accent := palette.At(0).Stroke
	return &AnnotatorTheme{
		colors: map[fyne.ThemeColorName]color.Color{
			theme.ColorNamePrimary:    bannerBlue,
			theme.ColorNameBackground: color.NRGBA{R: 0x12, G: 0x14, B: 0x18, A: 0xFF},
			theme.ColorNameFocus:      colorutil.WithAlpha(accent, 0x80),
			theme.ColorNameSelection:  colorutil.WithAlpha(accent, 0x50),
			theme.ColorNameScrollBar:  color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF},
		},
		sizes: map[fyne.ThemeSizeName]float32{
			theme.SizeNameScrollBar:      12,
			theme.SizeNameScrollBarSmall: 8,
		},
	}
}

// Color ignores the requested variant; the surface is always dark.
func (t *AnnotatorTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	if c, ok := t.colors[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (t *AnnotatorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *AnnotatorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *AnnotatorTheme) Size(name fyne.ThemeSizeName) float32 {
	if s, ok := t.sizes[name]; ok {
		return s
	}
	return theme.DefaultTheme().Size(name)
}
