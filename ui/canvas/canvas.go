// Package canvas provides the annotation surface: the zoomable image with
// its regions, routing pointer events to the annotation machine.
package canvas

import (
	"image"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/render"
	"mammo-annotator/internal/viewport"
	"mammo-annotator/pkg/geometry"
)

// emptySize is the surface size while no image is shown.
var emptySize = fyne.NewSize(400, 300)

// Surface displays the current image and its regions.
type Surface struct {
	widget.BaseWidget

	machine      *annotation.Machine
	viewport     *viewport.Viewport
	renderer     *render.Renderer
	handleRadius float64
	logger       *slog.Logger

	mu    sync.RWMutex
	base  image.Image
	press bool // a vertex press happened since the last tap

	// Display state
	raster  *fynecanvas.Raster
	content *pointerContent
	scroll  *zoomScroll
	imgSize fyne.Size

	// Last rendered output
	lastOutput *image.RGBA

	// Callbacks
	onSelect     func(id uuid.UUID)
	onZoomChange func(zoom float64)
}

// NewSurface creates a surface over machine's store. handleRadius is the
// vertex handle radius in screen pixels.
func NewSurface(machine *annotation.Machine, vp *viewport.Viewport, r *render.Renderer, handleRadius float64, logger *slog.Logger) *Surface {
	if handleRadius <= 0 {
		handleRadius = render.DefaultHandleRadius
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Surface{
		machine:      machine,
		viewport:     vp,
		renderer:     r,
		handleRadius: handleRadius,
		logger:       logger,
		imgSize:      emptySize,
	}

	s.raster = fynecanvas.NewRaster(s.draw)
	s.raster.ScaleMode = fynecanvas.ImageScalePixels
	s.raster.SetMinSize(s.imgSize)
	s.content = newPointerContent(s)
	s.scroll = newZoomScroll(s.content, s)

	machine.Store().OnChange(func(uint64) { s.Refresh() })
	machine.OnTransition(func(_, _ annotation.Mode) { s.Refresh() })
	vp.OnZoomChange(func(z float64) {
		s.updateContentSize()
		if s.onZoomChange != nil {
			s.onZoomChange(z)
		}
	})

	s.ExtendBaseWidget(s)
	return s
}

// SetImage sets the base image. nil clears the surface.
func (s *Surface) SetImage(img image.Image) {
	s.mu.Lock()
	s.base = img
	s.mu.Unlock()
	s.updateContentSize()
}

// Image returns the base image.
func (s *Surface) Image() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// OnSelect sets the callback for taps on a region body outside drawing.
func (s *Surface) OnSelect(callback func(id uuid.UUID)) {
	s.onSelect = callback
}

// OnZoomChange sets a callback for zoom changes.
func (s *Surface) OnZoomChange(callback func(zoom float64)) {
	s.onZoomChange = callback
}

// ZoomIn increases the zoom by one step.
func (s *Surface) ZoomIn() { s.viewport.ZoomIn() }

// ZoomOut decreases the zoom by one step.
func (s *Surface) ZoomOut() { s.viewport.ZoomOut() }

// ResetZoom returns to the minimum zoom.
func (s *Surface) ResetZoom() { s.viewport.ResetZoom() }

// RenderedOutput returns the last frame drawn.
func (s *Surface) RenderedOutput() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOutput
}

// Refresh redraws the surface.
func (s *Surface) Refresh() {
	s.raster.Refresh()
}

// toImage converts a surface-local position. ok is false when the surface is
// not mounted or shows no image.
func (s *Surface) toImage(pos fyne.Position) (geometry.Point2D, bool) {
	if s.Image() == nil {
		return geometry.Point2D{}, false
	}
	p, ok := s.viewport.ScreenToImage(geometry.Pt(float64(pos.X), float64(pos.Y)))
	if !ok {
		s.logger.Debug("pointer event before mount ignored")
	}
	return p, ok
}

func (s *Surface) updateContentSize() {
	img := s.Image()
	if img == nil {
		s.imgSize = emptySize
	} else {
		b := img.Bounds()
		z := s.viewport.Zoom()
		s.imgSize = fyne.NewSize(float32(float64(b.Dx())*z), float32(float64(b.Dy())*z))
	}

	s.raster.SetMinSize(s.imgSize)
	s.raster.Resize(s.imgSize)
	s.content.Resize(s.imgSize)
	s.content.Refresh()
	s.raster.Refresh()
	s.scroll.Refresh()
}

// draw is the raster drawing function.
func (s *Surface) draw(w, h int) image.Image {
	img := s.Image()
	if img == nil {
		out := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = 255
		}
		return out
	}

	sel := s.machine.Selection()
	scene := render.Scene{
		Base:         img,
		Polygons:     s.machine.Store().Polygons(),
		Hovered:      sel.Hovered,
		Active:       sel.ActivePolygon,
		ActivePoint:  sel.ActivePoint,
		Zoom:         s.viewport.Zoom(),
		Palette:      s.machine.Store().Palette(),
		HandleRadius: s.handleRadius,
		Handles:      true,
		Labels:       true,
	}
	if sel.Mode == annotation.ModeDrawing {
		scene.Buffer = s.machine.Store().Buffer()
	}
	out := s.renderer.Render(scene)

	s.mu.Lock()
	s.lastOutput = out
	s.mu.Unlock()
	return out
}

// CreateRenderer implements fyne.Widget. Creating the renderer mounts the
// viewport; pointer events before that are dropped.
func (s *Surface) CreateRenderer() fyne.WidgetRenderer {
	s.viewport.Mount(geometry.Point2D{})
	return &surfaceRenderer{surface: s}
}

type surfaceRenderer struct {
	surface *Surface
}

func (r *surfaceRenderer) Layout(size fyne.Size) {
	r.surface.scroll.Resize(size)
}

func (r *surfaceRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *surfaceRenderer) Refresh() {
	r.surface.raster.Refresh()
}

func (r *surfaceRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.surface.scroll}
}

func (r *surfaceRenderer) Destroy() {
	r.surface.viewport.Unmount()
}

// zoomScroll wraps a scroll container but uses the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll  *container.Scroll
	surface *Surface
}

func newZoomScroll(content fyne.CanvasObject, s *Surface) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, surface: s}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	wheelZoom(zs.surface, ev)
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

func wheelZoom(s *Surface, ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		s.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		s.ZoomOut()
	}
}
