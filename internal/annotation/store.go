package annotation

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"

	"mammo-annotator/pkg/colorutil"
	"mammo-annotator/pkg/geometry"
)

// ChangeListener is called after every store mutation with the new revision.
type ChangeListener func(revision uint64)

// Store owns the committed polygons and the transient drawing buffer.
//
// Every mutation builds a new polygon slice and swaps it in whole, so a slice
// returned by Polygons is never modified afterwards and can be read during a
// render without locking.
type Store struct {
	mu        sync.RWMutex
	palette   colorutil.Palette
	polygons  []Polygon
	buffer    []geometry.Point2D
	revision  uint64
	newID     func() uuid.UUID
	listeners []ChangeListener
	logger    *slog.Logger
}

// NewStore creates an empty store that assigns colors from palette.
func NewStore(palette colorutil.Palette, logger *slog.Logger) *Store {
	if palette.Size() == 0 {
		palette = colorutil.DefaultPalette()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		palette: palette,
		newID:   func() uuid.UUID { return uuid.Must(uuid.NewV7()) },
		logger:  logger,
	}
}

// Palette returns the palette used for color assignment.
func (s *Store) Palette() colorutil.Palette {
	return s.palette
}

// OnChange registers a listener for store mutations.
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Polygons returns the current polygon list. The slice is shared and must
// not be modified.
func (s *Store) Polygons() []Polygon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polygons
}

// Len returns the number of committed polygons.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.polygons)
}

// Revision increases by one on every mutation, including buffer changes.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Get returns a copy of the polygon with the given id.
func (s *Store) Get(id uuid.UUID) (Polygon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.polygons[i].Clone(), true
	}
	return Polygon{}, false
}

// Create commits a new polygon from points. The color index is the current
// polygon count modulo the palette size and the default name is
// "<palette name> <count+1>".
func (s *Store) Create(points []geometry.Point2D) (Polygon, error) {
	if len(points) < MinPoints {
		return Polygon{}, ErrTooFewPoints
	}
	if !finite(points) {
		return Polygon{}, ErrInvalidPoints
	}

	s.mu.Lock()
	n := len(s.polygons)
	colorIndex := n % s.palette.Size()
	p := Polygon{
		ID:         s.newID(),
		Points:     slices.Clone(points),
		ColorIndex: colorIndex,
		Name:       fmt.Sprintf("%s %d", s.palette.At(colorIndex).Name, n+1),
	}
	next := make([]Polygon, 0, n+1)
	next = append(next, s.polygons...)
	next = append(next, p)
	rev := s.commit(next)
	s.mu.Unlock()

	s.logger.Debug("polygon created", "id", p.ID, "points", len(p.Points), "color_index", colorIndex)
	s.notify(rev)
	return p.Clone(), nil
}

// UpdatePoint replaces vertex index of polygon id. No clamping is applied.
func (s *Store) UpdatePoint(id uuid.UUID, index int, pt geometry.Point2D) error {
	return s.replace(id, func(p *Polygon) error {
		if index < 0 || index >= len(p.Points) {
			return fmt.Errorf("%w: %d of %d", ErrPointIndex, index, len(p.Points))
		}
		p.Points[index] = pt
		return nil
	})
}

// UpdateMetadata atomically replaces the name, details, confidence and
// reference list of polygon id.
func (s *Store) UpdateMetadata(id uuid.UUID, md Metadata) error {
	return s.replace(id, func(p *Polygon) error {
		p.Name = md.Name
		p.Details = md.Details
		p.Confidence = nil
		if md.Confidence != nil {
			p.Confidence = Float(*md.Confidence)
		}
		p.References = slices.Clone(md.References)
		return nil
	})
}

// Delete removes polygon id.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	next := slices.Concat(s.polygons[:i], s.polygons[i+1:])
	rev := s.commit(next)
	s.mu.Unlock()

	s.logger.Debug("polygon deleted", "id", id)
	s.notify(rev)
	return nil
}

// Reset drops every polygon and the drawing buffer.
func (s *Store) Reset() {
	s.mu.Lock()
	s.buffer = nil
	rev := s.commit(nil)
	s.mu.Unlock()
	s.notify(rev)
}

// Buffer returns a copy of the in-progress drawing buffer.
func (s *Store) Buffer() []geometry.Point2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.buffer)
}

// BufferLen returns the number of buffered points.
func (s *Store) BufferLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffer)
}

// AppendBuffer adds a point to the drawing buffer.
func (s *Store) AppendBuffer(pt geometry.Point2D) {
	s.mu.Lock()
	s.buffer = append(slices.Clip(s.buffer), pt)
	rev := s.bump()
	s.mu.Unlock()
	s.notify(rev)
}

// ClearBuffer discards the drawing buffer.
func (s *Store) ClearBuffer() {
	s.mu.Lock()
	s.buffer = nil
	rev := s.bump()
	s.mu.Unlock()
	s.notify(rev)
}

// FinishBuffer commits the buffer as a new polygon and clears it. The buffer
// is left untouched when it holds fewer than MinPoints points.
func (s *Store) FinishBuffer() (Polygon, error) {
	s.mu.RLock()
	pts := slices.Clone(s.buffer)
	s.mu.RUnlock()

	p, err := s.Create(pts)
	if err != nil {
		return Polygon{}, err
	}
	s.ClearBuffer()
	return p, nil
}

// replace applies fn to a copy of polygon id and swaps in a new list.
func (s *Store) replace(id uuid.UUID, fn func(p *Polygon) error) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	updated := s.polygons[i].Clone()
	if err := fn(&updated); err != nil {
		s.mu.Unlock()
		return err
	}
	next := slices.Clone(s.polygons)
	next[i] = updated
	rev := s.commit(next)
	s.mu.Unlock()

	s.notify(rev)
	return nil
}

// commit installs a new list. Caller holds the write lock.
func (s *Store) commit(next []Polygon) uint64 {
	s.polygons = next
	return s.bump()
}

func (s *Store) bump() uint64 {
	s.revision++
	return s.revision
}

func (s *Store) notify(rev uint64) {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(rev)
	}
}

func (s *Store) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(s.polygons, func(p Polygon) bool { return p.ID == id })
}

func finite(points []geometry.Point2D) bool {
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}
