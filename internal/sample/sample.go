// Package sample generates synthetic regions for a freshly loaded image.
package sample

import (
	"math"
	"math/rand/v2"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/pkg/geometry"
)

const (
	minVertices = 6
	maxVertices = 12
	jitter      = 0.25
)

// Generator produces jittered circular regions inside an image.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a deterministic generator for seed.
func NewGenerator(seed int64) *Generator {
	s := uint64(seed)
	return &Generator{rng: rand.New(rand.NewPCG(s, s^0x9E3779B97F4A7C15))}
}

// Regions returns n point lists that fit inside bounds. Each outline has at
// least annotation.MinPoints vertices.
func (g *Generator) Regions(bounds geometry.Rect, n int) [][]geometry.Point2D {
	if n <= 0 || bounds.Empty() {
		return nil
	}
	short := math.Min(bounds.Width, bounds.Height)
	maxR := short / 8
	minR := short / 20
	if maxR < 3 {
		return nil
	}

	out := make([][]geometry.Point2D, 0, n)
	for range n {
		r := minR + g.rng.Float64()*(maxR-minR)
		margin := r * (1 + jitter)
		center := geometry.Pt(
			bounds.X+margin+g.rng.Float64()*(bounds.Width-2*margin),
			bounds.Y+margin+g.rng.Float64()*(bounds.Height-2*margin),
		)
		k := minVertices + g.rng.IntN(maxVertices-minVertices+1)
		pts := geometry.CirclePoints(center, r, k)
		for i, p := range pts {
			scale := 1 + jitter*(2*g.rng.Float64()-1)
			pts[i] = center.Add(p.Sub(center).Scale(scale))
		}
		out = append(out, pts)
	}
	return out
}

// Populate creates n sample polygons in store through the normal create path.
func (g *Generator) Populate(store *annotation.Store, bounds geometry.Rect, n int) ([]annotation.Polygon, error) {
	var created []annotation.Polygon
	for _, pts := range g.Regions(bounds, n) {
		p, err := store.Create(pts)
		if err != nil {
			return created, err
		}
		created = append(created, p)
	}
	return created, nil
}
