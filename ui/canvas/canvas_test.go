package canvas

import (
	"image"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/logging"
	"mammo-annotator/internal/render"
	"mammo-annotator/internal/viewport"
	"mammo-annotator/pkg/colorutil"
	"mammo-annotator/pkg/geometry"
)

type fixture struct {
	surface *Surface
	machine *annotation.Machine
	store   *annotation.Store
	vp      *viewport.Viewport
}

func newFixture(t *testing.T, mount bool) fixture {
	t.Helper()
	test.NewApp()

	store := annotation.NewStore(colorutil.DefaultPalette(), logging.Discard())
	machine := annotation.NewMachine(store, annotation.DefaultProximityThreshold, logging.Discard())
	vp := viewport.New(viewport.DefaultLimits())
	r, err := render.NewRenderer()
	require.NoError(t, err)

	s := NewSurface(machine, vp, r, render.DefaultHandleRadius, logging.Discard())
	s.SetImage(image.NewGray(image.Rect(0, 0, 200, 200)))
	if mount {
		w := test.NewWindow(s)
		w.Resize(fyne.NewSize(300, 300))
		t.Cleanup(w.Close)
	}
	return fixture{surface: s, machine: machine, store: store, vp: vp}
}

func (f fixture) tap(x, y float32) {
	f.surface.content.Tapped(&fyne.PointEvent{Position: fyne.NewPos(x, y)})
}

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	}
}

func TestSurface_DrawRegionByClicks(t *testing.T) {
	f := newFixture(t, true)
	require.True(t, f.vp.Mounted())

	f.machine.StartDrawing()
	f.tap(10, 10)
	f.tap(50, 10)
	f.tap(50, 50)
	f.tap(10, 50)
	f.tap(12, 11)

	polys := f.store.Polygons()
	require.Len(t, polys, 1)
	assert.Len(t, polys[0].Points, 4)
	assert.Equal(t, "Red 1", polys[0].Name)
	assert.Zero(t, f.store.BufferLen())
	assert.Equal(t, annotation.ModeIdle, f.machine.Mode())
}

func TestSurface_ClicksUseZoom(t *testing.T) {
	f := newFixture(t, true)
	f.surface.ZoomIn()
	f.surface.ZoomIn()
	require.InDelta(t, 1.2, f.vp.Zoom(), 1e-9)

	f.machine.StartDrawing()
	f.tap(24, 36)
	buf := f.store.Buffer()
	require.Len(t, buf, 1)
	assert.InDelta(t, 20, buf[0].X, 1e-9)
	assert.InDelta(t, 30, buf[0].Y, 1e-9)
}

func TestSurface_UnmountedIgnoresPointer(t *testing.T) {
	f := newFixture(t, false)
	f.machine.StartDrawing()
	f.tap(10, 10)
	f.surface.content.MouseMoved(mouse(80, 80))
	assert.Zero(t, f.store.BufferLen())
}

func TestSurface_NoImageIgnoresPointer(t *testing.T) {
	f := newFixture(t, true)
	f.surface.SetImage(nil)
	f.machine.StartDrawing()
	f.tap(10, 10)
	assert.Zero(t, f.store.BufferLen())
}

func TestSurface_DragVertex(t *testing.T) {
	f := newFixture(t, true)
	p, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100)})
	require.NoError(t, err)

	f.surface.content.MouseDown(mouse(101, 21))
	require.Equal(t, annotation.ModeDraggingVertex, f.machine.Mode())
	sel := f.machine.Selection()
	assert.Equal(t, p.ID, sel.ActivePolygon)
	assert.Equal(t, 1, sel.ActivePoint)

	f.surface.content.MouseMoved(mouse(140, 30))
	f.surface.content.MouseUp(mouse(140, 30))
	assert.Equal(t, annotation.ModeIdle, f.machine.Mode())

	got, ok := f.store.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, []geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(140, 30), geometry.Pt(100, 100)}, got.Points)

	// The tap that follows the release must not select the region.
	var selected uuid.UUID
	f.surface.OnSelect(func(id uuid.UUID) { selected = id })
	f.tap(140, 30)
	assert.Equal(t, uuid.Nil, selected)
}

func TestSurface_MouseOutEndsDrag(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100)})
	require.NoError(t, err)

	f.surface.content.MouseDown(mouse(20, 20))
	require.Equal(t, annotation.ModeDraggingVertex, f.machine.Mode())
	f.surface.content.MouseOut()
	assert.Equal(t, annotation.ModeIdle, f.machine.Mode())
}

func TestSurface_DragReleasedOutsideKeepsSelect(t *testing.T) {
	f := newFixture(t, true)
	p, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100), geometry.Pt(20, 100)})
	require.NoError(t, err)

	var selections []uuid.UUID
	f.surface.OnSelect(func(id uuid.UUID) { selections = append(selections, id) })

	f.surface.content.MouseDown(mouse(20, 20))
	require.Equal(t, annotation.ModeDraggingVertex, f.machine.Mode())
	f.surface.content.MouseMoved(mouse(15, 15))
	f.surface.content.MouseOut()
	f.surface.content.MouseUp(mouse(500, 500))
	assert.Equal(t, annotation.ModeIdle, f.machine.Mode())

	f.tap(60, 60)
	assert.Equal(t, []uuid.UUID{p.ID}, selections)
}

func TestSurface_MissedPressClearsMark(t *testing.T) {
	f := newFixture(t, true)
	p, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100), geometry.Pt(20, 100)})
	require.NoError(t, err)

	var selected uuid.UUID
	f.surface.OnSelect(func(id uuid.UUID) { selected = id })

	f.surface.content.MouseDown(mouse(20, 20))
	f.surface.content.MouseUp(mouse(20, 20))
	f.surface.content.MouseDown(mouse(60, 60))
	f.tap(60, 60)
	assert.Equal(t, p.ID, selected)
}

func TestSurface_HoverKeptDuringDrag(t *testing.T) {
	f := newFixture(t, true)
	p, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100), geometry.Pt(20, 100)})
	require.NoError(t, err)

	f.surface.content.MouseMoved(mouse(60, 60))
	require.Equal(t, p.ID, f.machine.Selection().Hovered)

	f.surface.content.MouseDown(mouse(20, 20))
	require.Equal(t, annotation.ModeDraggingVertex, f.machine.Mode())
	f.surface.content.MouseMoved(mouse(25, 25))
	assert.Equal(t, p.ID, f.machine.Selection().Hovered)

	f.surface.content.MouseMoved(mouse(180, 180))
	assert.Equal(t, uuid.Nil, f.machine.Selection().Hovered)
	f.surface.content.MouseUp(mouse(180, 180))
}

func TestSurface_HoverAndSelect(t *testing.T) {
	f := newFixture(t, true)
	p, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100), geometry.Pt(20, 100)})
	require.NoError(t, err)

	f.surface.content.MouseMoved(mouse(60, 60))
	assert.Equal(t, p.ID, f.machine.Selection().Hovered)

	f.surface.content.MouseMoved(mouse(150, 150))
	assert.Equal(t, uuid.Nil, f.machine.Selection().Hovered)

	var selected uuid.UUID
	f.surface.OnSelect(func(id uuid.UUID) { selected = id })
	f.tap(60, 60)
	assert.Equal(t, p.ID, selected)
}

func TestSurface_WheelZoom(t *testing.T) {
	f := newFixture(t, true)
	var zooms []float64
	f.surface.OnZoomChange(func(z float64) { zooms = append(zooms, z) })

	f.surface.content.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.NewDelta(0, 1)})
	f.surface.scroll.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.NewDelta(0, 1)})
	f.surface.content.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.NewDelta(0, -1)})
	assert.InDeltaSlice(t, []float64{1.1, 1.2, 1.1}, zooms, 1e-9)
	assert.Equal(t, fyne.NewSize(220, 220), f.surface.imgSize)

	f.surface.ResetZoom()
	assert.Equal(t, 1.0, f.vp.Zoom())
}

func TestSurface_DrawFrame(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.store.Create([]geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(100, 20), geometry.Pt(100, 100)})
	require.NoError(t, err)

	out := f.surface.draw(200, 200)
	assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())
	assert.NotNil(t, f.surface.RenderedOutput())
}
