package app

import (
	"context"
	"errors"
	stdimage "image"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/config"
	"mammo-annotator/internal/image"
	"mammo-annotator/internal/logging"
	"mammo-annotator/pkg/geometry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"))
}

func newTestState(t *testing.T) *State {
	t.Helper()
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	s, err := NewState(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func dataURL(t *testing.T, w, h int) string {
	t.Helper()
	ref, err := image.EncodeDataURL(stdimage.NewGray(stdimage.Rect(0, 0, w, h)))
	require.NoError(t, err)
	return ref
}

// waitFor registers a listener and returns a channel receiving its payloads.
func waitFor(s *State, event EventType) <-chan interface{} {
	ch := make(chan interface{}, 8)
	s.On(event, func(data interface{}) { ch <- data })
	return ch
}

func receive(t *testing.T, ch <-chan interface{}) interface{} {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestLoadImage_GeneratesSampleRegions(t *testing.T) {
	s := newTestState(t)
	loaded := waitFor(s, EventImageLoaded)

	ref := dataURL(t, 320, 240)
	s.LoadImage(ref)
	layer, ok := receive(t, loaded).(*image.Layer)
	require.True(t, ok)
	require.NotNil(t, layer)

	assert.Same(t, layer, s.Image())
	assert.Equal(t, ref, s.ImageRef())
	assert.Equal(t, s.Config.Samples.Count, s.Store.Len())
	for _, p := range s.Store.Polygons() {
		for _, pt := range p.Points {
			assert.True(t, layer.Bounds().Contains(pt))
		}
	}
}

func TestLoadImage_ResetsSession(t *testing.T) {
	s := newTestState(t)
	s.Config.Samples.AutoGenerate = false
	loaded := waitFor(s, EventImageLoaded)

	s.LoadImage(dataURL(t, 100, 100))
	receive(t, loaded)

	p, err := s.Store.Create([]geometry.Point2D{geometry.Pt(1, 1), geometry.Pt(20, 1), geometry.Pt(20, 20)})
	require.NoError(t, err)
	_, err = s.Editor.Open(p.ID)
	require.NoError(t, err)
	s.Machine.StartDrawing()

	s.LoadImage(dataURL(t, 120, 80))
	receive(t, loaded)

	assert.Zero(t, s.Store.Len())
	assert.Equal(t, annotation.ModeIdle, s.Machine.Mode())
	_, editing := s.Editor.Editing()
	assert.False(t, editing)
}

func TestLoadImage_StaleResultIgnored(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	release := make(chan struct{})
	httpmock.RegisterResponder("GET", "https://images.test/slow.png", func(*http.Request) (*http.Response, error) {
		<-release
		return nil, errors.New("too late")
	})

	s := newTestState(t)
	loaded := waitFor(s, EventImageLoaded)
	failed := waitFor(s, EventImageFailed)

	s.LoadImage("https://images.test/slow.png")
	fresh := dataURL(t, 64, 64)
	s.LoadImage(fresh)
	receive(t, loaded)

	close(release)
	s.Loader.Close()

	assert.Equal(t, fresh, s.ImageRef())
	assert.Empty(t, failed)
	assert.Empty(t, loaded)
}

func TestLoadImage_Failure(t *testing.T) {
	s := newTestState(t)
	failed := waitFor(s, EventImageFailed)

	s.LoadImage("data:image/png;base64,bm90IGFuIGltYWdl")
	err, ok := receive(t, failed).(error)
	require.True(t, ok)
	assert.Error(t, err)
	assert.Nil(t, s.Image())
}

func TestClear(t *testing.T) {
	s := newTestState(t)
	loaded := waitFor(s, EventImageLoaded)
	s.LoadImage(dataURL(t, 200, 200))
	receive(t, loaded)
	require.NotZero(t, s.Store.Len())

	s.Clear()
	assert.Nil(t, receive(t, loaded).(*image.Layer))
	assert.Nil(t, s.Image())
	assert.Zero(t, s.Store.Len())
}

func TestEventsForwarded(t *testing.T) {
	s := newTestState(t)
	modes := waitFor(s, EventModeChanged)
	zooms := waitFor(s, EventZoomChanged)
	revs := waitFor(s, EventPolygonsChanged)

	_, err := s.Store.Create([]geometry.Point2D{geometry.Pt(0, 0), geometry.Pt(5, 0), geometry.Pt(5, 5)})
	require.NoError(t, err)
	assert.Equal(t, s.Store.Revision(), receive(t, revs))

	s.Machine.StartDrawing()
	assert.Equal(t, annotation.ModeDrawing, receive(t, modes))

	s.Viewport.ZoomIn()
	assert.InDelta(t, 1.1, receive(t, zooms).(float64), 1e-9)
}

func TestExportSession_NoImage(t *testing.T) {
	s := newTestState(t)
	finished := waitFor(s, EventExportFinished)

	_, err := s.ExportSession(context.Background())
	assert.ErrorIs(t, err, ErrNoImage)
	out := receive(t, finished).(ExportOutcome)
	assert.ErrorIs(t, out.Err, ErrNoImage)
}

func TestExportSession_Gallery(t *testing.T) {
	s := newTestState(t)
	s.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }
	loaded := waitFor(s, EventImageLoaded)
	exporting := waitFor(s, EventExportState)

	gallery := image.Gallery()
	require.NotEmpty(t, gallery)
	s.LoadGallerySample(gallery[0])
	receive(t, loaded)

	gs, ok := s.GallerySample()
	require.True(t, ok)
	assert.Equal(t, gallery[0].Name, gs.Name)

	rec, err := s.SessionRecord()
	require.NoError(t, err)
	assert.Equal(t, "left-cc", rec.ID)
	assert.NotEmpty(t, rec.Findings)
	assert.Len(t, rec.Regions, s.Store.Len())

	res, err := s.ExportSession(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Placeholders)
	assert.Equal(t, true, receive(t, exporting))
	assert.Equal(t, false, receive(t, exporting))

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Contains(t, res.Path, "medical-report-left-cc.pdf")
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "right-mlo", slug("Right MLO"))
	assert.Equal(t, "dense-tissue", slug("  Dense tissue! "))
}
