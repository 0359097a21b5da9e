// Package render draws annotation scenes into raster images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/pkg/colorutil"
	"mammo-annotator/pkg/geometry"
)

const (
	strokeWidth   = 2.0
	markerRadius  = 3.0
	calloutPad    = 6.0
	calloutOffset = 12.0
	detailMaxLen  = 60
)

// DefaultHandleRadius is the on-screen vertex handle radius in pixels.
const DefaultHandleRadius = 5.0

// Scene is everything needed to draw one frame of the surface.
type Scene struct {
	Base         image.Image
	Size         image.Point // used when Base is nil
	Polygons     []annotation.Polygon
	Buffer       []geometry.Point2D
	Hovered      uuid.UUID
	Active       uuid.UUID
	ActivePoint  int
	Zoom         float64
	Palette      colorutil.Palette
	HandleRadius float64
	Handles      bool
	Labels       bool
}

// Renderer draws scenes. It is safe for use by one goroutine at a time.
type Renderer struct {
	callout font.Face
	label   font.Face
}

// NewRenderer parses the embedded Go font.
func NewRenderer() (*Renderer, error) {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Renderer{
		callout: truetype.NewFace(ttf, &truetype.Options{Size: 13, DPI: 72, Hinting: font.HintingFull}),
		label:   truetype.NewFace(ttf, &truetype.Options{Size: 15, DPI: 72, Hinting: font.HintingFull}),
	}, nil
}

// Extent returns the image-space size of the scene.
func (s Scene) Extent() image.Point {
	if s.Base != nil {
		return s.Base.Bounds().Size()
	}
	return s.Size
}

// Render draws the scene at its zoom factor. Stored points are never
// modified; zoom is applied through the display transform only.
func (r *Renderer) Render(s Scene) *image.RGBA {
	zoom := s.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	ext := s.Extent()
	w := max(1, int(math.Ceil(float64(ext.X)*zoom)))
	h := max(1, int(math.Ceil(float64(ext.Y)*zoom)))

	dc := gg.NewContext(w, h)
	dc.SetColor(colorutil.Black)
	dc.Clear()

	if s.Base != nil {
		dc.Push()
		dc.Scale(zoom, zoom)
		b := s.Base.Bounds()
		dc.DrawImage(s.Base, -b.Min.X, -b.Min.Y)
		dc.Pop()
	}

	ctm := geometry.Scaling(zoom, zoom)
	radius := s.HandleRadius
	if radius <= 0 {
		radius = DefaultHandleRadius
	}

	for _, p := range s.Polygons {
		sw := s.Palette.At(p.ColorIndex)
		hovered := p.ID == s.Hovered
		drawPolygon(dc, ctm, p.Points, sw, hovered)
		if s.Handles {
			for i, pt := range p.Points {
				r := radius
				if p.ID == s.Active && i == s.ActivePoint {
					r *= 1.5
				}
				drawHandle(dc, ctm.Apply(pt), r, sw.Stroke)
			}
		}
	}

	if len(s.Buffer) > 0 {
		drawBuffer(dc, ctm, s.Buffer, s.Palette.At(len(s.Polygons)).Stroke)
	}

	if s.Labels {
		dc.SetFontFace(r.label)
		for _, p := range s.Polygons {
			drawLabel(dc, ctm.Apply(p.Anchor()), p.Name, s.Palette.At(p.ColorIndex).Stroke)
		}
	}

	if s.Hovered != uuid.Nil {
		for _, p := range s.Polygons {
			if p.ID == s.Hovered {
				dc.SetFontFace(r.callout)
				drawCallout(dc, ctm.Apply(p.Anchor()), calloutLines(p), s.Palette.At(p.ColorIndex).Stroke)
				break
			}
		}
	}

	return imageRGBA(dc.Image())
}

// RenderAnnotated draws polygons with name labels over base at zoom 1, as
// embedded in exported reports.
func (r *Renderer) RenderAnnotated(base image.Image, polygons []annotation.Polygon, palette colorutil.Palette) *image.RGBA {
	return r.Render(Scene{
		Base:     base,
		Polygons: polygons,
		Zoom:     1,
		Palette:  palette,
		Labels:   true,
	})
}

func drawPolygon(dc *gg.Context, ctm geometry.AffineTransform, pts []geometry.Point2D, sw colorutil.Swatch, hovered bool) {
	if len(pts) == 0 {
		return
	}
	tracePath(dc, ctm, pts)
	dc.ClosePath()
	fill := sw.Fill
	if hovered {
		fill = colorutil.WithAlpha(sw.Stroke, 0x70)
	}
	dc.SetColor(fill)
	dc.FillPreserve()
	dc.SetColor(sw.Stroke)
	dc.SetLineWidth(strokeWidth)
	if hovered {
		dc.SetLineWidth(strokeWidth * 1.5)
	}
	dc.Stroke()
}

func drawHandle(dc *gg.Context, at geometry.Point2D, r float64, stroke color.Color) {
	dc.DrawCircle(at.X, at.Y, r)
	dc.SetColor(colorutil.White)
	dc.FillPreserve()
	dc.SetColor(stroke)
	dc.SetLineWidth(1.5)
	dc.Stroke()
}

// drawBuffer draws the in-progress outline as an open polyline.
func drawBuffer(dc *gg.Context, ctm geometry.AffineTransform, pts []geometry.Point2D, stroke color.Color) {
	tracePath(dc, ctm, pts)
	dc.SetColor(stroke)
	dc.SetLineWidth(strokeWidth)
	dc.SetDash(6, 4)
	dc.Stroke()
	dc.SetDash()
	for _, pt := range pts {
		s := ctm.Apply(pt)
		dc.DrawCircle(s.X, s.Y, markerRadius)
		dc.SetColor(stroke)
		dc.Fill()
	}
}

func drawLabel(dc *gg.Context, at geometry.Point2D, text string, c color.Color) {
	if text == "" {
		return
	}
	dc.SetColor(colorutil.WithAlpha(colorutil.Black, 0xB0))
	w, h := dc.MeasureString(text)
	dc.DrawRectangle(at.X+4, at.Y-h-8, w+8, h+6)
	dc.Fill()
	dc.SetColor(c)
	dc.DrawStringAnchored(text, at.X+8, at.Y-5, 0, 0)
}

// drawCallout draws the hover detail box near the anchor, kept inside the frame.
func drawCallout(dc *gg.Context, at geometry.Point2D, lines []string, accent color.Color) {
	if len(lines) == 0 {
		return
	}
	var w float64
	lh := dc.FontHeight() * 1.3
	for _, l := range lines {
		lw, _ := dc.MeasureString(l)
		w = math.Max(w, lw)
	}
	boxW := w + 2*calloutPad
	boxH := lh*float64(len(lines)) + 2*calloutPad

	x := at.X + calloutOffset
	y := at.Y - boxH - calloutOffset
	x = math.Max(0, math.Min(x, float64(dc.Width())-boxW))
	y = math.Max(0, math.Min(y, float64(dc.Height())-boxH))

	dc.DrawRoundedRectangle(x, y, boxW, boxH, 4)
	dc.SetColor(colorutil.WithAlpha(colorutil.White, 0xF0))
	dc.FillPreserve()
	dc.SetColor(accent)
	dc.SetLineWidth(1.5)
	dc.Stroke()

	dc.SetColor(colorutil.Black)
	for i, l := range lines {
		dc.DrawStringAnchored(l, x+calloutPad, y+calloutPad+lh*float64(i), 0, 1)
	}
}

func calloutLines(p annotation.Polygon) []string {
	lines := []string{p.Name}
	if p.Confidence != nil {
		lines = append(lines, fmt.Sprintf("Confidence: %.1f%%", *p.Confidence))
	}
	if d := strings.TrimSpace(p.Details); d != "" {
		d, _, _ = strings.Cut(d, "\n")
		if r := []rune(d); len(r) > detailMaxLen {
			d = string(r[:detailMaxLen-3]) + "..."
		}
		lines = append(lines, d)
	}
	return lines
}

func tracePath(dc *gg.Context, ctm geometry.AffineTransform, pts []geometry.Point2D) {
	dc.NewSubPath()
	for i, pt := range pts {
		s := ctm.Apply(pt)
		if i == 0 {
			dc.MoveTo(s.X, s.Y)
		} else {
			dc.LineTo(s.X, s.Y)
		}
	}
}

func imageRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}
