// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/app"
	"mammo-annotator/internal/image"
	"mammo-annotator/internal/version"
	"mammo-annotator/ui/canvas"
	"mammo-annotator/ui/panels"
	"mammo-annotator/ui/prefs"
)

const appTitle = "Mammography Annotator"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	prefs  *prefs.Prefs
	logger *slog.Logger

	surface   *canvas.Surface
	findings  *panels.FindingsPanel
	gallery   *panels.GalleryPanel
	split     *container.Split
	statusBar *widget.Label
	zoomLabel *widget.Label

	newRegionBtn *widget.Button
	cancelBtn    *widget.Button
	zoomInBtn    *widget.Button
	zoomOutBtn   *widget.Button
	exportBtn    *widget.Button
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, logger *slog.Logger) *MainWindow {
	if logger == nil {
		logger = slog.Default()
	}
	mw := &MainWindow{
		Window: fyneApp.NewWindow(appTitle),
		app:    fyneApp,
		state:  state,
		prefs:  prefs.New(fyneApp.Preferences()),
		logger: logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.updateControls()
	return mw
}

// setupUI creates the main layout: side panels | toolbar over surface.
func (mw *MainWindow) setupUI() {
	cfg := mw.state.Config
	mw.surface = canvas.NewSurface(mw.state.Machine, mw.state.Viewport, mw.state.Renderer, cfg.View.HandleRadius, mw.logger)
	mw.findings = panels.NewFindingsPanel(mw.state, mw.Window, mw.logger)
	mw.gallery = panels.NewGalleryPanel(mw.state, mw.logger)
	mw.surface.OnSelect(mw.findings.Edit)

	mw.statusBar = widget.NewLabel("Open an image or pick a sample to start.")
	mw.zoomLabel = widget.NewLabel("")

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.surface,         // center
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Findings", mw.findings.Container()),
		container.NewTabItem("Samples", mw.gallery.Container()),
	)
	mw.split = container.NewHSplit(tabs, canvasArea)
	mw.split.SetOffset(mw.prefs.SplitOffset())

	mw.SetContent(container.NewBorder(nil, container.NewPadded(mw.statusBar), nil, nil, mw.split))
	mw.Resize(fyne.NewSize(1280, 820))

	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			mw.onCancel()
		}
	})
	mw.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		for _, u := range uris {
			if image.IsSupportedFormat(u.Path()) {
				mw.openImage(u.Path())
				return
			}
		}
	})
	mw.SetOnClosed(func() { mw.prefs.SetSplitOffset(mw.split.Offset) })
}

// createToolbar creates the drawing and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.newRegionBtn = widget.NewButtonWithIcon("New Region", theme.ContentAddIcon(), mw.onNewRegion)
	mw.cancelBtn = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), mw.onCancel)
	mw.zoomOutBtn = widget.NewButtonWithIcon("", theme.ZoomOutIcon(), mw.surface.ZoomOut)
	mw.zoomInBtn = widget.NewButtonWithIcon("", theme.ZoomInIcon(), mw.surface.ZoomIn)
	resetBtn := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), mw.surface.ResetZoom)
	mw.exportBtn = widget.NewButtonWithIcon("Export Report", theme.DocumentSaveIcon(), mw.onExport)

	return container.NewHBox(
		mw.newRegionBtn,
		mw.cancelBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		mw.zoomOutBtn,
		mw.zoomLabel,
		mw.zoomInBtn,
		resetBtn,
		widget.NewSeparator(),
		mw.exportBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	recent := fyne.NewMenuItem("Open Recent", nil)
	recent.ChildMenu = mw.recentMenu()

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		recent,
		fyne.NewMenuItem("Close Image", mw.state.Clear),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Report", mw.onExport),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("New Region", mw.onNewRegion),
		fyne.NewMenuItem("Cancel Region", mw.onCancel),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.surface.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.surface.ZoomOut),
		fyne.NewMenuItem("Reset Zoom", mw.surface.ResetZoom),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// recentMenu lists recently opened images.
func (mw *MainWindow) recentMenu() *fyne.Menu {
	var items []*fyne.MenuItem
	for _, ref := range mw.prefs.Recent() {
		ref := ref
		label := ref
		if src, err := image.Resolve(ref); err == nil && src.Kind == image.KindFile {
			label = filepath.Base(src.Location)
		}
		items = append(items, fyne.NewMenuItem(label, func() { mw.OpenImage(ref) }))
	}
	if len(items) == 0 {
		none := fyne.NewMenuItem("No recent images", nil)
		none.Disabled = true
		return fyne.NewMenu("", none)
	}
	items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Clear Recent", func() {
		mw.prefs.ClearRecent()
		mw.setupMenus()
	}))
	return fyne.NewMenu("", items...)
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoading, func(interface{}) {
		mw.updateStatus("Loading image...")
	})

	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		layer, _ := data.(*image.Layer)
		if layer == nil {
			mw.surface.SetImage(nil)
			mw.SetTitle(appTitle)
			mw.updateStatus("No image")
			mw.updateControls()
			return
		}
		mw.surface.SetImage(layer.Image)
		title := appTitle
		if gs, ok := mw.state.GallerySample(); ok {
			title += " - " + gs.Name
		} else if src, err := image.Resolve(layer.Ref); err == nil && src.Kind == image.KindFile {
			title += " - " + filepath.Base(src.Location)
		}
		mw.SetTitle(title)
		mw.updateStatus(fmt.Sprintf("Image loaded (%dx%d), %d regions", layer.Width(), layer.Height(), mw.state.Store.Len()))
		mw.updateControls()
	})

	mw.state.On(app.EventImageFailed, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Image failed to load")
			dialog.ShowError(err, mw.Window)
		}
	})

	mw.state.On(app.EventModeChanged, func(data interface{}) {
		switch data {
		case annotation.ModeDrawing:
			mw.updateStatus("Drawing: click to add points, click near the first point to close, Esc to cancel")
		case annotation.ModeDraggingVertex:
			mw.updateStatus("Moving point")
		default:
			mw.updateStatus(fmt.Sprintf("%d regions", mw.state.Store.Len()))
		}
		mw.updateControls()
	})

	mw.state.On(app.EventZoomChanged, func(interface{}) { mw.updateControls() })
	mw.state.On(app.EventExportState, func(interface{}) { mw.updateControls() })

	mw.state.On(app.EventExportFinished, func(data interface{}) {
		out, _ := data.(app.ExportOutcome)
		if out.Err != nil {
			mw.updateStatus("Export failed")
			dialog.ShowError(out.Err, mw.Window)
			return
		}
		msg := "Report saved to " + out.Result.Path
		if out.Result.Placeholders > 0 {
			msg += fmt.Sprintf(" (%d image(s) could not be loaded)", out.Result.Placeholders)
		}
		mw.updateStatus(msg)
	})
}

// updateControls enables buttons for the current mode, zoom and export state.
func (mw *MainWindow) updateControls() {
	hasImage := mw.state.Image() != nil
	mode := mw.state.Machine.Mode()
	vp := mw.state.Viewport

	setEnabled(mw.newRegionBtn, hasImage && mode == annotation.ModeIdle)
	setEnabled(mw.cancelBtn, mode == annotation.ModeDrawing)
	setEnabled(mw.zoomInBtn, vp.CanZoomIn())
	setEnabled(mw.zoomOutBtn, vp.CanZoomOut())
	setEnabled(mw.exportBtn, hasImage && !mw.state.Exporter.Generating())
	if mw.state.Exporter.Generating() {
		mw.exportBtn.SetText("Generating...")
	} else {
		mw.exportBtn.SetText("Export Report")
	}
	mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", vp.Zoom()*100))
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// OpenImage loads ref, a path, URL or data URL, and adds it to the recent list.
func (mw *MainWindow) OpenImage(ref string) {
	mw.prefs.AddRecent(ref)
	mw.setupMenus()
	mw.state.LoadImage(ref)
}

func (mw *MainWindow) openImage(path string) {
	mw.prefs.RememberFile(path)
	mw.setupMenus()
	mw.state.LoadImage(path)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.LastDir()
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// Menu and toolbar handlers

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.openImage(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onNewRegion() {
	if mw.state.Image() == nil {
		return
	}
	mw.state.Editor.Cancel()
	mw.state.Machine.StartDrawing()
}

func (mw *MainWindow) onCancel() {
	mw.state.Machine.Cancel()
	mw.surface.Refresh()
}

func (mw *MainWindow) onExport() {
	if mw.state.Exporter.Generating() {
		return
	}
	mw.updateStatus("Generating report...")
	go func() {
		if _, err := mw.state.ExportSession(context.Background()); err != nil {
			mw.logger.Error("export failed", "error", err)
		}
	}()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Outline regions of interest on mammography images,\n"+
			"record findings and export them as a PDF report.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
