// Package annotation holds the polygon model, the polygon store with its
// drawing buffer, and the interaction state machine that drives them.
package annotation

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"mammo-annotator/pkg/geometry"
)

// MinPoints is the smallest vertex count a committed polygon may have.
const MinPoints = 3

var (
	ErrNotFound      = errors.New("polygon not found")
	ErrTooFewPoints  = errors.New("polygon needs at least 3 points")
	ErrPointIndex    = errors.New("point index out of range")
	ErrInvalidPoints = errors.New("polygon points must be finite")
)

// Reference is a citation attached to a finding.
type Reference struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Polygon is a committed region of interest with its finding metadata.
// Values handed out by the Store are copies; mutate through the Store.
type Polygon struct {
	ID         uuid.UUID          `json:"id"`
	Points     []geometry.Point2D `json:"points"`
	ColorIndex int                `json:"colorIndex"`
	Name       string             `json:"name"`
	Details    string             `json:"details,omitempty"`
	Confidence *float64           `json:"confidence,omitempty"`
	References []Reference        `json:"references,omitempty"`
}

// Metadata is the editable, non-geometric part of a Polygon.
type Metadata struct {
	Name       string
	Details    string
	Confidence *float64
	References []Reference
}

// Clone returns a deep copy.
func (p Polygon) Clone() Polygon {
	out := p
	out.Points = slices.Clone(p.Points)
	out.References = slices.Clone(p.References)
	if p.Confidence != nil {
		c := *p.Confidence
		out.Confidence = &c
	}
	return out
}

// Metadata returns the editable fields of p.
func (p Polygon) Metadata() Metadata {
	c := p.Clone()
	return Metadata{
		Name:       c.Name,
		Details:    c.Details,
		Confidence: c.Confidence,
		References: c.References,
	}
}

// Area returns the enclosed area in image pixels.
func (p Polygon) Area() float64 {
	return geometry.Area(p.Points)
}

// Perimeter returns the outline length in image pixels.
func (p Polygon) Perimeter() float64 {
	return geometry.Perimeter(p.Points)
}

// Bounds returns the axis-aligned bounding box of the outline.
func (p Polygon) Bounds() geometry.Rect {
	return geometry.BoundingBox(p.Points)
}

// Centroid returns the vertex average of the outline.
func (p Polygon) Centroid() geometry.Point2D {
	return geometry.Centroid(p.Points)
}

// Anchor is the point callouts attach to: the first vertex.
func (p Polygon) Anchor() geometry.Point2D {
	if len(p.Points) == 0 {
		return geometry.Point2D{}
	}
	return p.Points[0]
}

// Float returns a pointer to v, for optional confidence values.
func Float(v float64) *float64 {
	return &v
}
