// Package app wires the annotation engine into one session and provides its events.
package app

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/config"
	"mammo-annotator/internal/editor"
	"mammo-annotator/internal/finding"
	"mammo-annotator/internal/image"
	"mammo-annotator/internal/logging"
	"mammo-annotator/internal/render"
	"mammo-annotator/internal/report"
	"mammo-annotator/internal/sample"
	"mammo-annotator/internal/viewport"
)

// ErrNoImage is returned when an operation needs a loaded image.
var ErrNoImage = errors.New("no image loaded")

// State holds the session: the current image, the polygon store and every
// component that reads or mutates it.
type State struct {
	mu sync.RWMutex

	Config *config.Config

	Store    *annotation.Store
	Machine  *annotation.Machine
	Viewport *viewport.Viewport
	Editor   *editor.Editor
	Fetcher  *image.Fetcher
	Loader   *image.Loader
	Exporter *report.Exporter

	// Renderer is used by the surface on the UI goroutine. Exports use their
	// own renderer.
	Renderer *render.Renderer

	logger  *slog.Logger
	samples *sample.Generator
	now     func() time.Time

	// Current image
	pending  uint64
	layer    *image.Layer
	imageRef string
	gallery  *image.Sample

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different session events.
type EventType int

const (
	EventImageLoading EventType = iota
	EventImageLoaded
	EventImageFailed
	EventPolygonsChanged
	EventModeChanged
	EventZoomChanged
	EventExportState
	EventExportFinished
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// ExportOutcome is the payload of EventExportFinished.
type ExportOutcome struct {
	Result report.Result
	Err    error
}

// NewState creates a session from cfg. A nil cfg uses the defaults.
func NewState(cfg *config.Config, logger *slog.Logger) (*State, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r, err := render.NewRenderer()
	if err != nil {
		return nil, err
	}

	fetcher := image.NewFetcher(image.FetcherOptions{
		Timeout:   cfg.Fetch.Timeout,
		CacheTTL:  cfg.Fetch.CacheTTL,
		UserAgent: cfg.Fetch.UserAgent,
	}, logging.Module(logger, "image"))
	store := annotation.NewStore(cfg.Palette(), logging.Module(logger, "store"))
	machine := annotation.NewMachine(store, cfg.Annotation.ProximityThreshold, logging.Module(logger, "annotation"))

	s := &State{
		Config:   cfg,
		Store:    store,
		Machine:  machine,
		Viewport: viewport.New(cfg.ZoomLimits()),
		Editor:   editor.New(machine, logging.Module(logger, "editor")),
		Fetcher:  fetcher,
		Loader:   image.NewLoader(fetcher, logging.Module(logger, "loader")),
		Exporter: report.NewExporter(fetcher, report.Options{
			OutputDir:  cfg.Export.OutputDir,
			PageSize:   cfg.Export.PageSize,
			MaxImagePx: cfg.Export.MaxImagePx,
			Palette:    cfg.Palette(),
			Compress:   true,
		}, logging.Module(logger, "report")),
		Renderer:  r,
		logger:    logging.Module(logger, "app"),
		samples:   sample.NewGenerator(cfg.Samples.Seed),
		now:       time.Now,
		listeners: make(map[EventType][]EventListener),
	}

	store.OnChange(func(rev uint64) { s.Emit(EventPolygonsChanged, rev) })
	machine.OnTransition(func(_, to annotation.Mode) { s.Emit(EventModeChanged, to) })
	s.Viewport.OnZoomChange(func(z float64) { s.Emit(EventZoomChanged, z) })
	s.Exporter.OnStateChange(func(g bool) { s.Emit(EventExportState, g) })
	return s, nil
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Image returns the current base image, or nil.
func (s *State) Image() *image.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layer
}

// ImageRef returns the reference of the current image.
func (s *State) ImageRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imageRef
}

// GallerySample returns the gallery entry the current image came from.
func (s *State) GallerySample() (image.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gallery == nil {
		return image.Sample{}, false
	}
	return *s.gallery, true
}

// LoadImage starts loading ref and returns the load generation. When the
// load completes and is still the newest one, the session switches to the
// image: selection and polygons are reset and sample regions are generated.
func (s *State) LoadImage(ref string) uint64 {
	return s.load(ref, nil)
}

// LoadGallerySample loads the thumbnail of a gallery entry.
func (s *State) LoadGallerySample(gs image.Sample) uint64 {
	return s.load(gs.Thumbnail, &gs)
}

func (s *State) load(ref string, gs *image.Sample) uint64 {
	s.mu.Lock()
	gen := s.Loader.Load(ref, func(res image.Result) { s.imageLoaded(res, gs) })
	s.pending = gen
	s.mu.Unlock()
	s.Emit(EventImageLoading, ref)
	return gen
}

func (s *State) imageLoaded(res image.Result, gs *image.Sample) {
	s.mu.Lock()
	if res.Generation != s.pending {
		s.mu.Unlock()
		return
	}
	if res.Err != nil {
		s.mu.Unlock()
		s.Emit(EventImageFailed, res.Err)
		return
	}
	s.layer = res.Layer
	s.imageRef = res.Ref
	s.gallery = gs
	s.mu.Unlock()

	s.Editor.Cancel()
	s.Machine.Reset()
	s.Store.Reset()
	if s.Config.Samples.AutoGenerate {
		created, err := s.samples.Populate(s.Store, res.Layer.Bounds(), s.Config.Samples.Count)
		if err != nil {
			s.logger.Warn("sample generation failed", "error", err)
		}
		s.logger.Debug("sample regions generated", "count", len(created))
	}
	s.logger.Info("image loaded", "format", res.Layer.Format, "width", res.Layer.Width(), "height", res.Layer.Height())
	s.Emit(EventImageLoaded, res.Layer)
}

// Clear drops the current image and all polygons.
func (s *State) Clear() {
	s.Loader.Invalidate()
	s.mu.Lock()
	s.pending = 0
	s.layer = nil
	s.imageRef = ""
	s.gallery = nil
	s.mu.Unlock()

	s.Editor.Cancel()
	s.Machine.Reset()
	s.Store.Reset()
	s.Emit(EventImageLoaded, (*image.Layer)(nil))
}

// SessionRecord builds the report record for the current session. Images
// picked from the gallery carry the mocked analysis for that sample.
func (s *State) SessionRecord() (finding.Record, error) {
	layer := s.Image()
	if layer == nil {
		return finding.Record{}, ErrNoImage
	}
	r, err := render.NewRenderer()
	if err != nil {
		return finding.Record{}, err
	}
	now := s.now()
	rec, err := report.SessionRecord(layer, s.Store.Polygons(), s.Store.Palette(), r, now)
	if err != nil {
		return finding.Record{}, err
	}
	if gs, ok := s.GallerySample(); ok {
		mocked := finding.SampleRecord(slug(gs.Name), rec.InputImage, rec.OutputImage)
		rec.ID = mocked.ID
		rec.Findings = mocked.Findings
		rec.BIRADS = mocked.BIRADS
		rec.Comments = mocked.Comments
	}
	return rec, nil
}

// ExportSession exports the current session as a report.
func (s *State) ExportSession(ctx context.Context) (report.Result, error) {
	rec, err := s.SessionRecord()
	if err != nil {
		s.Emit(EventExportFinished, ExportOutcome{Err: err})
		return report.Result{}, err
	}
	return s.ExportRecord(ctx, rec)
}

// ExportRecord exports a fixed report record.
func (s *State) ExportRecord(ctx context.Context, rec finding.Record) (report.Result, error) {
	res, err := s.Exporter.Export(ctx, rec)
	s.Emit(EventExportFinished, ExportOutcome{Result: res, Err: err})
	return res, err
}

// Close stops pending image loads.
func (s *State) Close() {
	s.Loader.Close()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
