// Package report exports report records as paginated PDF documents.
package report

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mammo-annotator/internal/finding"
	imgpkg "mammo-annotator/internal/image"
	"mammo-annotator/pkg/colorutil"
)

var (
	ErrExportInProgress = errors.New("report export already in progress")
	ErrPageSize         = errors.New("unsupported page size")
)

const jpegQuality = 88

// Options configures the exporter.
type Options struct {
	OutputDir  string
	PageSize   string
	MaxImagePx int
	Palette    colorutil.Palette
	// Compress is off only in tests that inspect the PDF text.
	Compress bool
}

// Result describes a finished export.
type Result struct {
	Path         string
	Pages        int
	Placeholders int
	Warnings     []string
}

// StateListener observes the generating flag.
type StateListener func(generating bool)

// Exporter builds PDF reports. Only one export runs at a time.
type Exporter struct {
	fetcher *imgpkg.Fetcher
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	generating atomic.Bool
	mu         sync.Mutex
	listeners  []StateListener
}

// NewExporter creates an exporter that fetches images through fetcher.
func NewExporter(fetcher *imgpkg.Fetcher, opts Options, logger *slog.Logger) *Exporter {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.PageSize == "" {
		opts.PageSize = "A4"
	}
	if opts.Palette.Size() == 0 {
		opts.Palette = colorutil.DefaultPalette()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{fetcher: fetcher, opts: opts, logger: logger, now: time.Now}
}

// Generating reports whether an export is running.
func (e *Exporter) Generating() bool {
	return e.generating.Load()
}

// OnStateChange registers a listener for the generating flag.
func (e *Exporter) OnStateChange(l StateListener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Export writes the report for rec into the output directory.
func (e *Exporter) Export(ctx context.Context, rec finding.Record) (Result, error) {
	stamp := e.now()
	path := filepath.Join(e.opts.OutputDir, Filename(rec, stamp))

	res, err := e.run(ctx, rec, stamp, func(w func(io.Writer) error) error {
		if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		if err := w(f); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		return f.Close()
	})
	if err != nil {
		return res, err
	}
	res.Path = path
	e.logger.Info("report exported", "path", path, "pages", res.Pages, "placeholders", res.Placeholders)
	return res, nil
}

// WriteTo renders the report for rec into w.
func (e *Exporter) WriteTo(ctx context.Context, rec finding.Record, w io.Writer) (Result, error) {
	return e.run(ctx, rec, e.now(), func(write func(io.Writer) error) error {
		return write(w)
	})
}

// run holds the re-entrancy guard around one export. The generating flag is
// always cleared, and a panic in the document writer becomes an error.
func (e *Exporter) run(ctx context.Context, rec finding.Record, stamp time.Time, sink func(func(io.Writer) error) error) (res Result, err error) {
	if !e.generating.CompareAndSwap(false, true) {
		return Result{}, ErrExportInProgress
	}
	e.notify(true)
	defer func() {
		e.generating.Store(false)
		e.notify(false)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("report assembly failed: %v", r)
		}
		if err != nil {
			e.logger.Error("report export failed", "id", rec.ID, "error", err)
		}
	}()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = stamp
	}
	images := e.fetchPair(ctx, rec)

	doc := newDocument(e.opts)
	layout := doc.build(rec, images)
	if err := doc.pdf.Error(); err != nil {
		return Result{}, fmt.Errorf("report assembly failed: %w", err)
	}

	res = Result{Pages: doc.pdf.PageCount(), Placeholders: layout.placeholders}
	for _, img := range images {
		if img.err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", img.label, img.err))
		}
	}

	if err := sink(func(w io.Writer) error { return doc.pdf.Output(w) }); err != nil {
		return res, fmt.Errorf("failed to write report: %w", err)
	}
	return res, nil
}

func (e *Exporter) notify(generating bool) {
	e.mu.Lock()
	listeners := e.listeners
	e.mu.Unlock()
	for _, l := range listeners {
		l(generating)
	}
}

// embedded is one image slot of the report.
type embedded struct {
	label  string
	data   []byte
	width  int
	height int
	err    error
}

// fetchPair loads the input and output images concurrently. Each slot is
// filled independently so either may finish first or fail alone.
func (e *Exporter) fetchPair(ctx context.Context, rec finding.Record) [2]embedded {
	slots := [2]embedded{{label: "Original Image"}, {label: "Analyzed Image"}}
	refs := [2]string{rec.InputImage, rec.OutputImage}

	var g errgroup.Group
	for i := range slots {
		g.Go(func() error {
			slots[i].data, slots[i].width, slots[i].height, slots[i].err = e.load(ctx, refs[i])
			if slots[i].err != nil {
				e.logger.Warn("report image unavailable, using placeholder", "slot", slots[i].label, "error", slots[i].err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (e *Exporter) load(ctx context.Context, ref string) ([]byte, int, int, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, 0, 0, errors.New("no image reference")
	}
	l, err := e.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, 0, 0, err
	}
	var img image.Image = imgpkg.Downscale(l.Image, e.opts.MaxImagePx)
	data, err := imgpkg.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	return data, b.Dx(), b.Dy(), nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns medical-report-<id>.pdf, or the timestamp when the record
// has no id.
func Filename(rec finding.Record, t time.Time) string {
	id := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(rec.ID), "-"), "-.")
	if id == "" {
		id = t.Format("20060102-150405")
	}
	return "medical-report-" + id + ".pdf"
}
