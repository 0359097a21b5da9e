package canvas

import (
	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/render"
)

// pointerContent wraps the raster and turns pointer events into machine
// events. A raster has no per-shape events, so hover and vertex presses are
// hit-tested against the store.
type pointerContent struct {
	widget.BaseWidget
	surface *Surface
	raster  *fynecanvas.Raster
}

var (
	_ fyne.Tappable     = (*pointerContent)(nil)
	_ desktop.Mouseable = (*pointerContent)(nil)
	_ desktop.Hoverable = (*pointerContent)(nil)
	_ fyne.Scrollable   = (*pointerContent)(nil)
)

func newPointerContent(s *Surface) *pointerContent {
	pc := &pointerContent{surface: s, raster: s.raster}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *pointerContent) CreateRenderer() fyne.WidgetRenderer {
	return &pointerContentRenderer{content: pc}
}

func (pc *pointerContent) MinSize() fyne.Size {
	return pc.raster.MinSize()
}

// Tapped adds a point while drawing, otherwise selects the region under the
// pointer.
func (pc *pointerContent) Tapped(ev *fyne.PointEvent) {
	s := pc.surface
	s.mu.Lock()
	pressed := s.press
	s.press = false
	s.mu.Unlock()

	p, ok := s.toImage(ev.Position)
	if !ok {
		return
	}
	switch s.machine.Mode() {
	case annotation.ModeDrawing:
		if poly, closed := s.machine.Click(p); closed {
			s.logger.Debug("region closed", "id", poly.ID, "points", len(poly.Points))
		}
		s.Refresh()
	case annotation.ModeIdle:
		if pressed {
			return
		}
		if id, hit := render.PolygonAt(s.machine.Store().Polygons(), p); hit && s.onSelect != nil {
			s.onSelect(id)
		}
	}
}

// MouseDown starts a vertex drag when the press lands on a handle.
func (pc *pointerContent) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s := pc.surface
	s.mu.Lock()
	s.press = false
	s.mu.Unlock()

	p, ok := s.toImage(ev.Position)
	if !ok || s.machine.Mode() != annotation.ModeIdle {
		return
	}
	radius := s.handleRadius / s.viewport.Zoom()
	id, idx, hit := render.VertexAt(s.machine.Store().Polygons(), p, radius)
	if !hit {
		return
	}
	if s.machine.PressVertex(id, idx) {
		s.mu.Lock()
		s.press = true
		s.mu.Unlock()
	}
}

// MouseUp ends a vertex drag wherever the pointer is.
func (pc *pointerContent) MouseUp(*desktop.MouseEvent) {
	pc.surface.machine.Release()
}

func (pc *pointerContent) MouseIn(ev *desktop.MouseEvent) {
	pc.MouseMoved(ev)
}

// MouseMoved drags, traces and updates the hovered region.
func (pc *pointerContent) MouseMoved(ev *desktop.MouseEvent) {
	s := pc.surface
	p, ok := s.toImage(ev.Position)
	if !ok {
		return
	}
	mode := s.machine.Mode()
	s.machine.Move(p)

	before := s.machine.Selection().Hovered
	var after uuid.UUID
	if mode != annotation.ModeDrawing {
		after, _ = render.PolygonAt(s.machine.Store().Polygons(), p)
	}
	if after != before {
		if before != uuid.Nil {
			s.machine.LeavePolygon(before)
		}
		if after != uuid.Nil {
			s.machine.EnterPolygon(after)
		}
		s.Refresh()
		return
	}
	if mode == annotation.ModeDrawing {
		s.Refresh()
	}
}

// MouseOut ends a drag and clears hover. A drag released outside the
// surface never produces a tap, so the press mark is dropped here too.
func (pc *pointerContent) MouseOut() {
	pc.surface.mu.Lock()
	pc.surface.press = false
	pc.surface.mu.Unlock()
	pc.surface.machine.Leave()
	pc.surface.Refresh()
}

func (pc *pointerContent) Scrolled(ev *fyne.ScrollEvent) {
	wheelZoom(pc.surface, ev)
}

type pointerContentRenderer struct {
	content *pointerContent
}

func (r *pointerContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *pointerContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *pointerContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *pointerContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *pointerContentRenderer) Destroy() {}
