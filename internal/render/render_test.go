package render

import (
	"image"
	"image/color"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/pkg/colorutil"
	"mammo-annotator/pkg/geometry"
)

func testPolygon(x, y, size float64, colorIndex int) annotation.Polygon {
	return annotation.Polygon{
		ID: uuid.New(),
		Points: []geometry.Point2D{
			geometry.Pt(x, y), geometry.Pt(x+size, y),
			geometry.Pt(x+size, y+size), geometry.Pt(x, y+size),
		},
		ColorIndex: colorIndex,
		Name:       "Region",
	}
}

func grayImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func TestRender_SizeFollowsZoom(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out := r.Render(Scene{Base: grayImage(200, 100), Zoom: 1.5, Palette: colorutil.DefaultPalette()})
	assert.Equal(t, image.Pt(300, 150), out.Bounds().Size())

	out = r.Render(Scene{Size: image.Pt(10, 10)})
	assert.Equal(t, image.Pt(10, 10), out.Bounds().Size())
}

func TestRender_ZoomDoesNotTouchPoints(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	polys := []annotation.Polygon{testPolygon(10, 10, 40, 0), testPolygon(60, 20, 30, 1)}
	want := make([][]geometry.Point2D, len(polys))
	for i, p := range polys {
		want[i] = slices.Clone(p.Points)
	}

	for _, z := range []float64{1.0, 1.5, 1.0} {
		r.Render(Scene{
			Base: grayImage(120, 80), Polygons: polys, Zoom: z,
			Palette: colorutil.DefaultPalette(), Handles: true, Hovered: polys[0].ID,
		})
	}
	for i, p := range polys {
		assert.Equal(t, want[i], p.Points)
	}
}

func TestRender_FillsPolygonInPaletteColor(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	palette := colorutil.DefaultPalette()

	base := grayImage(100, 100)
	out := r.Render(Scene{
		Base:     base,
		Polygons: []annotation.Polygon{testPolygon(20, 20, 60, 0)},
		Zoom:     1,
		Palette:  palette,
	})

	inside := out.RGBAAt(50, 50)
	outside := out.RGBAAt(5, 5)
	assertNear(t, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}, outside)
	assert.Greater(t, inside.R, inside.B, "red tint inside the region")

	// Same geometry at zoom 2 lands at doubled pixel positions.
	zoomed := r.Render(Scene{Base: base, Polygons: []annotation.Polygon{testPolygon(20, 20, 60, 0)}, Zoom: 2, Palette: palette})
	assertNear(t, inside, zoomed.RGBAAt(100, 100))
}

func assertNear(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2)
	assert.InDelta(t, want.G, got.G, 2)
	assert.InDelta(t, want.B, got.B, 2)
}

func TestRenderAnnotated(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	p := testPolygon(10, 30, 40, 2)
	p.Confidence = annotation.Float(90)

	out := r.RenderAnnotated(grayImage(80, 80), []annotation.Polygon{p}, colorutil.DefaultPalette())
	assert.Equal(t, image.Pt(80, 80), out.Bounds().Size())
}

func TestCalloutLines(t *testing.T) {
	p := testPolygon(0, 0, 10, 0)
	p.Name = "Tumor A"
	p.Confidence = annotation.Float(87.5)
	p.Details = "first line\nsecond line"

	assert.Equal(t, []string{"Tumor A", "Confidence: 87.5%", "first line"}, calloutLines(p))
}

func TestCalloutLinesTruncatesRunes(t *testing.T) {
	p := testPolygon(0, 0, 10, 0)
	p.Name = "Masse"
	p.Details = strings.Repeat("é", 80)

	lines := calloutLines(p)
	require.Len(t, lines, 2)
	d := lines[1]
	assert.True(t, utf8.ValidString(d))
	assert.Equal(t, detailMaxLen, utf8.RuneCountInString(d))
	assert.Equal(t, strings.Repeat("é", detailMaxLen-3)+"...", d)

	p.Details = strings.Repeat("é", detailMaxLen)
	assert.Equal(t, p.Details, calloutLines(p)[1])
}

func TestHitTesting(t *testing.T) {
	bottom := testPolygon(0, 0, 100, 0)
	top := testPolygon(50, 50, 100, 1)
	polys := []annotation.Polygon{bottom, top}

	id, ok := PolygonAt(polys, geometry.Pt(75, 75))
	require.True(t, ok)
	assert.Equal(t, top.ID, id, "later polygons are on top")

	id, ok = PolygonAt(polys, geometry.Pt(10, 10))
	require.True(t, ok)
	assert.Equal(t, bottom.ID, id)

	_, ok = PolygonAt(polys, geometry.Pt(-10, -10))
	assert.False(t, ok)

	id, idx, ok := VertexAt(polys, geometry.Pt(98, 3), 5)
	require.True(t, ok)
	assert.Equal(t, bottom.ID, id)
	assert.Equal(t, 1, idx)

	_, _, ok = VertexAt(polys, geometry.Pt(30, 30), 5)
	assert.False(t, ok)
}
