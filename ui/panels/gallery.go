package panels

import (
	"log/slog"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mammo-annotator/internal/app"
	"mammo-annotator/internal/image"
)

const thumbSize = 96

// GalleryPanel offers the predefined sample images.
type GalleryPanel struct {
	state   *app.State
	logger  *slog.Logger
	samples []image.Sample
	box     *fyne.Container
}

// NewGalleryPanel creates the panel from image.Gallery.
func NewGalleryPanel(state *app.State, logger *slog.Logger) *GalleryPanel {
	if logger == nil {
		logger = slog.Default()
	}
	gp := &GalleryPanel{state: state, logger: logger, samples: image.Gallery()}
	gp.box = container.NewVBox(widget.NewLabelWithStyle("Sample images", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, s := range gp.samples {
		gp.box.Add(gp.entry(s))
	}
	return gp
}

// Container returns the panel for embedding in layouts.
func (gp *GalleryPanel) Container() fyne.CanvasObject {
	return container.NewVScroll(gp.box)
}

// Select loads the sample at index i.
func (gp *GalleryPanel) Select(i int) {
	if i < 0 || i >= len(gp.samples) {
		return
	}
	gp.state.LoadGallerySample(gp.samples[i])
}

func (gp *GalleryPanel) entry(s image.Sample) fyne.CanvasObject {
	btn := widget.NewButton(s.Name, func() { gp.state.LoadGallerySample(s) })

	data, _, err := image.DecodeDataURL(s.Thumbnail)
	if err != nil {
		gp.logger.Warn("gallery thumbnail unreadable", "sample", s.Name, "error", err)
		return btn
	}
	layer, err := image.DecodeBytes(data)
	if err != nil {
		gp.logger.Warn("gallery thumbnail unreadable", "sample", s.Name, "error", err)
		return btn
	}
	thumb := fynecanvas.NewImageFromImage(image.Downscale(layer.Image, thumbSize))
	thumb.FillMode = fynecanvas.ImageFillContain
	thumb.SetMinSize(fyne.NewSize(thumbSize, thumbSize))
	return container.NewBorder(nil, btn, nil, nil, thumb)
}
