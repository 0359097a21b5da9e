package panels

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/app"
	"mammo-annotator/internal/config"
	"mammo-annotator/internal/logging"
	"mammo-annotator/pkg/geometry"
)

func newTestState(t *testing.T) *app.State {
	t.Helper()
	test.NewApp()
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	s, err := app.NewState(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func triangle(t *testing.T, s *app.State) annotation.Polygon {
	t.Helper()
	p, err := s.Store.Create([]geometry.Point2D{geometry.Pt(10, 10), geometry.Pt(60, 10), geometry.Pt(60, 60)})
	require.NoError(t, err)
	return p
}

func TestFindingsPanel_EditRoundTrip(t *testing.T) {
	s := newTestState(t)
	p := NewFindingsPanel(s, nil, logging.Discard())
	poly := triangle(t, s)
	assert.Equal(t, "1 region", p.summary.Text)

	p.Edit(poly.ID)
	require.Len(t, p.list.Objects, 1)
	assert.Same(t, p.form, p.list.Objects[0])
	assert.Equal(t, "Red 1", p.nameEntry.Text)

	p.nameEntry.SetText("Tumor A")
	p.confidenceEntry.SetText("87.5")
	test.Tap(p.addRefBtn)
	require.Len(t, p.refEntries, 1)
	p.refEntries[0][0].SetText("X")
	p.refEntries[0][1].SetText("Y")
	test.Tap(p.saveBtn)

	_, editing := s.Editor.Editing()
	assert.False(t, editing)
	got, ok := s.Store.Get(poly.ID)
	require.True(t, ok)
	assert.Equal(t, "Tumor A", got.Name)
	require.NotNil(t, got.Confidence)
	assert.Equal(t, 87.5, *got.Confidence)
	assert.Equal(t, []annotation.Reference{{Title: "X", Source: "Y"}}, got.References)

	p.Edit(poly.ID)
	assert.Equal(t, "Tumor A", p.nameEntry.Text)
	assert.Equal(t, "87.5", p.confidenceEntry.Text)
	require.Len(t, p.refEntries, 1)
	assert.Equal(t, "X", p.refEntries[0][0].Text)
}

func TestFindingsPanel_InvalidConfidenceKeepsForm(t *testing.T) {
	s := newTestState(t)
	p := NewFindingsPanel(s, nil, logging.Discard())
	poly := triangle(t, s)

	p.Edit(poly.ID)
	p.nameEntry.SetText("Changed")
	p.confidenceEntry.SetText("abc")
	assert.Error(t, p.confidenceEntry.Validate())
	test.Tap(p.saveBtn)

	assert.True(t, p.errLabel.Visible())
	id, editing := s.Editor.Editing()
	assert.True(t, editing)
	assert.Equal(t, poly.ID, id)
	got, _ := s.Store.Get(poly.ID)
	assert.Equal(t, "Red 1", got.Name)
}

func TestFindingsPanel_CancelDiscards(t *testing.T) {
	s := newTestState(t)
	p := NewFindingsPanel(s, nil, logging.Discard())
	poly := triangle(t, s)

	p.Edit(poly.ID)
	p.nameEntry.SetText("Discarded")
	test.Tap(p.cancelBtn)

	got, _ := s.Store.Get(poly.ID)
	assert.Equal(t, "Red 1", got.Name)
	_, editing := s.Editor.Editing()
	assert.False(t, editing)
	assert.NotSame(t, p.form, p.list.Objects[0])
}

func TestFindingsPanel_RemoveReference(t *testing.T) {
	s := newTestState(t)
	p := NewFindingsPanel(s, nil, logging.Discard())
	poly := triangle(t, s)

	p.Edit(poly.ID)
	test.Tap(p.addRefBtn)
	test.Tap(p.addRefBtn)
	p.refEntries[0][0].SetText("first")
	p.refEntries[1][0].SetText("second")
	p.removeReference(0)
	require.Len(t, p.refEntries, 1)
	assert.Equal(t, "second", p.refEntries[0][0].Text)
}

func TestFindingsPanel_Delete(t *testing.T) {
	s := newTestState(t)
	p := NewFindingsPanel(s, nil, logging.Discard())
	poly := triangle(t, s)
	other := triangle(t, s)

	p.Edit(poly.ID)
	views := s.Editor.Views()
	p.confirmDelete(views[0])

	assert.Equal(t, 1, s.Store.Len())
	_, ok := s.Store.Get(other.ID)
	assert.True(t, ok)
	_, editing := s.Editor.Editing()
	assert.False(t, editing)
	assert.Equal(t, "1 region", p.summary.Text)
}

func TestGalleryPanel_Select(t *testing.T) {
	s := newTestState(t)
	gp := NewGalleryPanel(s, logging.Discard())
	require.NotEmpty(t, gp.samples)
	assert.Len(t, gp.box.Objects, len(gp.samples)+1)

	loaded := make(chan struct{}, 1)
	s.On(app.EventImageLoaded, func(interface{}) { loaded <- struct{}{} })
	gp.Select(1)

	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("sample image not loaded")
	}
	gs, ok := s.GallerySample()
	require.True(t, ok)
	assert.Equal(t, gp.samples[1].Name, gs.Name)
	gp.Select(99)
}
