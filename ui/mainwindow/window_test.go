package mainwindow

import (
	stdimage "image"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/app"
	"mammo-annotator/internal/config"
	"mammo-annotator/internal/image"
	"mammo-annotator/internal/logging"
)

func newTestWindow(t *testing.T) *MainWindow {
	t.Helper()
	a := test.NewApp()
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	state, err := app.NewState(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(state.Close)

	mw := New(a, state, logging.Discard())
	t.Cleanup(mw.Close)
	return mw
}

func TestMainWindow_ControlsFollowState(t *testing.T) {
	mw := newTestWindow(t)
	assert.True(t, mw.newRegionBtn.Disabled(), "no image yet")
	assert.True(t, mw.exportBtn.Disabled())
	assert.True(t, mw.zoomOutBtn.Disabled())
	assert.False(t, mw.zoomInBtn.Disabled())
	assert.Equal(t, "100%", mw.zoomLabel.Text)

	loaded := make(chan struct{}, 1)
	mw.state.On(app.EventImageLoaded, func(interface{}) { loaded <- struct{}{} })
	ref, err := image.EncodeDataURL(stdimage.NewGray(stdimage.Rect(0, 0, 300, 300)))
	require.NoError(t, err)
	mw.OpenImage(ref)
	select {
	case <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("image not loaded")
	}

	assert.False(t, mw.newRegionBtn.Disabled())
	assert.False(t, mw.exportBtn.Disabled())
	assert.NotNil(t, mw.surface.Image())

	test.Tap(mw.newRegionBtn)
	assert.Equal(t, annotation.ModeDrawing, mw.state.Machine.Mode())
	assert.True(t, mw.newRegionBtn.Disabled())
	assert.False(t, mw.cancelBtn.Disabled())

	mw.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyEscape})
	assert.Equal(t, annotation.ModeIdle, mw.state.Machine.Mode())

	test.Tap(mw.zoomInBtn)
	assert.Equal(t, "110%", mw.zoomLabel.Text)
	assert.False(t, mw.zoomOutBtn.Disabled())
}

func TestMainWindow_RecentMenu(t *testing.T) {
	mw := newTestWindow(t)
	menu := mw.recentMenu()
	require.Len(t, menu.Items, 1)
	assert.True(t, menu.Items[0].Disabled)

	mw.prefs.RememberFile("/scans/left-cc.png")
	mw.prefs.AddRecent("https://example.org/right.jpg")
	menu = mw.recentMenu()
	require.Len(t, menu.Items, 4)
	assert.Equal(t, "https://example.org/right.jpg", menu.Items[0].Label)
	assert.Equal(t, "left-cc.png", menu.Items[1].Label)
	assert.Equal(t, "Clear Recent", menu.Items[3].Label)

	menu.Items[3].Action()
	assert.Empty(t, mw.prefs.Recent())
}
