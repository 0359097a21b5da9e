package render

import (
	"github.com/google/uuid"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/pkg/geometry"
)

// VertexAt returns the topmost vertex within radius of p. Both p and radius
// are in image units; callers divide the screen handle radius by zoom.
func VertexAt(polygons []annotation.Polygon, p geometry.Point2D, radius float64) (uuid.UUID, int, bool) {
	for i := len(polygons) - 1; i >= 0; i-- {
		idx, d := geometry.NearestVertex(p, polygons[i].Points)
		if idx >= 0 && d <= radius {
			return polygons[i].ID, idx, true
		}
	}
	return uuid.Nil, -1, false
}

// PolygonAt returns the topmost polygon whose body contains p.
func PolygonAt(polygons []annotation.Polygon, p geometry.Point2D) (uuid.UUID, bool) {
	for i := len(polygons) - 1; i >= 0; i-- {
		if !polygons[i].Bounds().Contains(p) {
			continue
		}
		if geometry.PointInPolygon(p, polygons[i].Points) {
			return polygons[i].ID, true
		}
	}
	return uuid.Nil, false
}
