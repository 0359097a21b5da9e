package image

import (
	"context"
	"log/slog"
	"sync"
)

// Result is the outcome of an asynchronous load.
type Result struct {
	Generation uint64
	Ref        string
	Layer      *Layer
	Err        error
}

// Loader loads the current image in the background. Each Load starts a new
// generation; results of older generations are dropped so a slow load never
// replaces a newer selection.
type Loader struct {
	fetcher *Fetcher
	logger  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoader creates a loader backed by fetcher.
func NewLoader(fetcher *Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: fetcher, logger: logger}
}

// Load fetches ref in a goroutine and calls done with the result unless a
// newer Load was issued in the meantime. It returns the generation.
func (l *Loader) Load(ref string, done func(Result)) uint64 {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		layer, err := l.fetcher.Fetch(ctx, ref)

		if !l.isCurrent(gen) {
			l.logger.Debug("stale image load dropped", "generation", gen, "ref", shortRef(ref))
			return
		}
		if err != nil {
			l.logger.Warn("image load failed", "ref", shortRef(ref), "error", err)
		}
		done(Result{Generation: gen, Ref: ref, Layer: layer, Err: err})
	}()
	return gen
}

// Current returns the newest generation.
func (l *Loader) Current() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Invalidate makes every in-flight load stale.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.mu.Unlock()
}

// Close invalidates pending loads and waits for their goroutines.
func (l *Loader) Close() {
	l.Invalidate()
	l.wg.Wait()
}

func (l *Loader) isCurrent(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen
}
