package geometry

import "math"

// PointInPolygon tests whether p is inside the closed polygon using ray casting.
// Polygons with fewer than three vertices contain nothing.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)
	for i := 0; i < n; i++ {
		a, b := polygon[i], polygon[(i+1)%n]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Area returns the unsigned area enclosed by the polygon (shoelace formula).
func Area(polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return 0
	}
	var sum float64
	n := len(polygon)
	for i := 0; i < n; i++ {
		a, b := polygon[i], polygon[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the length of the closed boundary.
func Perimeter(polygon []Point2D) float64 {
	if len(polygon) < 2 {
		return 0
	}
	var total float64
	n := len(polygon)
	for i := 0; i < n; i++ {
		total += polygon[i].Distance(polygon[(i+1)%n])
	}
	return total
}

// NearestVertex returns the index of the vertex closest to p and its
// distance, or -1 for an empty slice.
func NearestVertex(p Point2D, points []Point2D) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, v := range points {
		if d := p.Distance(v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
