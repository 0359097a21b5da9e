// Package viewport converts between surface (screen) and image coordinates.
//
// The surface transform is Translation(origin - scroll) ∘ Scaling(zoom). Points
// are stored in image space; zoom only changes how they are displayed.
package viewport

import (
	"math"
	"sync"

	"mammo-annotator/pkg/geometry"
)

// Limits bounds the zoom factor and sets the zoom step.
type Limits struct {
	Min  float64
	Max  float64
	Step float64
}

// DefaultLimits returns the reference zoom range [1.0, 2.0] with step 0.1.
func DefaultLimits() Limits {
	return Limits{Min: 1.0, Max: 2.0, Step: 0.1}
}

// ZoomListener is called after the zoom factor changes.
type ZoomListener func(zoom float64)

// Viewport holds the surface placement and zoom of a rendering surface.
type Viewport struct {
	mu        sync.RWMutex
	mounted   bool
	origin    geometry.Point2D
	scroll    geometry.Point2D
	zoom      float64
	limits    Limits
	listeners []ZoomListener
}

// New returns an unmounted viewport at the minimum zoom.
func New(limits Limits) *Viewport {
	if limits.Step <= 0 || limits.Min <= 0 || limits.Max < limits.Min {
		limits = DefaultLimits()
	}
	return &Viewport{zoom: limits.Min, limits: limits}
}

// Mount records the surface origin in screen coordinates. Until a viewport is
// mounted ScreenToImage yields no point.
func (v *Viewport) Mount(origin geometry.Point2D) {
	v.mu.Lock()
	v.mounted = true
	v.origin = origin
	v.mu.Unlock()
}

// Unmount detaches the surface.
func (v *Viewport) Unmount() {
	v.mu.Lock()
	v.mounted = false
	v.mu.Unlock()
}

// Mounted reports whether a surface is attached.
func (v *Viewport) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mounted
}

// SetScroll sets the scroll offset of the surface content in screen pixels.
func (v *Viewport) SetScroll(offset geometry.Point2D) {
	v.mu.Lock()
	v.scroll = offset
	v.mu.Unlock()
}

// CTM returns the image-to-screen transform.
func (v *Viewport) CTM() geometry.AffineTransform {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctm()
}

func (v *Viewport) ctm() geometry.AffineTransform {
	t := v.origin.Sub(v.scroll)
	return geometry.Translation(t.X, t.Y).Compose(geometry.Scaling(v.zoom, v.zoom))
}

// ScreenToImage maps a screen point into image space using the inverse of the
// current transform. ok is false when no surface is mounted.
func (v *Viewport) ScreenToImage(p geometry.Point2D) (geometry.Point2D, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.mounted {
		return geometry.Point2D{}, false
	}
	inv, ok := v.ctm().Inverse()
	if !ok {
		return geometry.Point2D{}, false
	}
	return inv.Apply(p), true
}

// ImageToScreen maps an image point onto the screen.
func (v *Viewport) ImageToScreen(p geometry.Point2D) (geometry.Point2D, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.mounted {
		return geometry.Point2D{}, false
	}
	return v.ctm().Apply(p), true
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// Limits returns the zoom limits.
func (v *Viewport) Limits() Limits {
	return v.limits
}

// OnZoomChange registers a listener for zoom changes.
func (v *Viewport) OnZoomChange(l ZoomListener) {
	v.mu.Lock()
	v.listeners = append(v.listeners, l)
	v.mu.Unlock()
}

// SetZoom clamps z into the limits and applies it. It returns the new zoom.
func (v *Viewport) SetZoom(z float64) float64 {
	v.mu.Lock()
	z = v.clamp(z)
	changed := z != v.zoom
	v.zoom = z
	listeners := v.listeners
	v.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(z)
		}
	}
	return z
}

// ZoomIn increases zoom by one step.
func (v *Viewport) ZoomIn() float64 {
	return v.SetZoom(v.Zoom() + v.limits.Step)
}

// ZoomOut decreases zoom by one step.
func (v *Viewport) ZoomOut() float64 {
	return v.SetZoom(v.Zoom() - v.limits.Step)
}

// ResetZoom returns to the minimum zoom.
func (v *Viewport) ResetZoom() float64 {
	return v.SetZoom(v.limits.Min)
}

// CanZoomIn reports whether ZoomIn would change the zoom.
func (v *Viewport) CanZoomIn() bool {
	return v.Zoom() < v.limits.Max
}

// CanZoomOut reports whether ZoomOut would change the zoom.
func (v *Viewport) CanZoomOut() bool {
	return v.Zoom() > v.limits.Min
}

// clamp rounds away float drift from repeated steps, then bounds z.
func (v *Viewport) clamp(z float64) float64 {
	if math.IsNaN(z) {
		return v.zoom
	}
	z = math.Round(z*1000) / 1000
	return math.Max(v.limits.Min, math.Min(v.limits.Max, z))
}
