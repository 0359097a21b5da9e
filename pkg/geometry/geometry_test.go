package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineTransform_InverseRoundTrip(t *testing.T) {
	ctm := Translation(35, -12).Compose(Scaling(1.5, 1.5))
	inv, ok := ctm.Inverse()
	require.True(t, ok)

	for _, p := range []Point2D{Pt(0, 0), Pt(10, 20), Pt(-4.5, 99.25)} {
		got := inv.Apply(ctm.Apply(p))
		assert.InDelta(t, p.X, got.X, 1e-9)
		assert.InDelta(t, p.Y, got.Y, 1e-9)
	}
}

func TestAffineTransform_InverseSingular(t *testing.T) {
	_, ok := Scaling(0, 0).Inverse()
	require.False(t, ok)
}

func TestAffineTransform_ComposeOrder(t *testing.T) {
	// Scale first, then translate.
	tr := Translation(10, 0).Compose(Scaling(2, 2))
	got := tr.Apply(Pt(1, 1))
	assert.Equal(t, Pt(12, 2), got)
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{Pt(10, 10), Pt(50, 10), Pt(50, 50), Pt(10, 50)}

	tests := []struct {
		name string
		p    Point2D
		want bool
	}{
		{"center", Pt(30, 30), true},
		{"outside left", Pt(5, 30), false},
		{"outside below", Pt(30, 60), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PointInPolygon(tc.p, square))
		})
	}

	assert.False(t, PointInPolygon(Pt(0, 0), square[:2]))
}

func TestAreaAndPerimeter(t *testing.T) {
	square := []Point2D{Pt(10, 10), Pt(50, 10), Pt(50, 50), Pt(10, 50)}
	assert.InDelta(t, 1600, Area(square), 1e-9)
	assert.InDelta(t, 160, Perimeter(square), 1e-9)

	// Orientation does not change the unsigned area.
	reversed := []Point2D{square[3], square[2], square[1], square[0]}
	assert.InDelta(t, 1600, Area(reversed), 1e-9)
}

func TestBoundingBoxAndCentroid(t *testing.T) {
	pts := []Point2D{Pt(3, 9), Pt(-1, 4), Pt(7, 2)}
	assert.Equal(t, Rect{X: -1, Y: 2, Width: 8, Height: 7}, BoundingBox(pts))
	c := Centroid(pts)
	assert.InDelta(t, 3, c.X, 1e-9)
	assert.InDelta(t, 5, c.Y, 1e-9)
	assert.Equal(t, Rect{}, BoundingBox(nil))
}

func TestCirclePoints(t *testing.T) {
	pts := CirclePoints(Pt(100, 100), 10, 8)
	require.Len(t, pts, 8)
	for _, p := range pts {
		assert.InDelta(t, 10, p.Distance(Pt(100, 100)), 1e-9)
	}
	assert.InDelta(t, 110, pts[0].X, 1e-9)
	assert.InDelta(t, 100+10*math.Sin(math.Pi/4), pts[1].Y, 1e-9)
}

func TestNearestVertex(t *testing.T) {
	idx, d := NearestVertex(Pt(49, 11), []Point2D{Pt(10, 10), Pt(50, 10), Pt(50, 50)})
	assert.Equal(t, 1, idx)
	assert.InDelta(t, math.Sqrt2, d, 1e-9)

	idx, _ = NearestVertex(Pt(0, 0), nil)
	assert.Equal(t, -1, idx)
}
