package annotation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"mammo-annotator/pkg/geometry"
)

// DefaultProximityThreshold is the close-loop and freehand distance in image units.
const DefaultProximityThreshold = 20.0

// Mode is the interaction mode of the Machine.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawing
	ModeDraggingVertex
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDrawing:
		return "drawing"
	case ModeDraggingVertex:
		return "dragging-vertex"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Selection is a snapshot of the interaction selection. uuid.Nil means none.
type Selection struct {
	Mode          Mode
	Hovered       uuid.UUID
	Editing       uuid.UUID
	ActivePolygon uuid.UUID
	ActivePoint   int
}

// TransitionListener is called after every mode change.
type TransitionListener func(from, to Mode)

// Machine routes pointer events, already in image coordinates, to the Store.
// Store mutations are issued without holding mu so change listeners may read
// the selection.
type Machine struct {
	store     *Store
	threshold float64
	logger    *slog.Logger

	mu            sync.Mutex
	mode          Mode
	hovered       uuid.UUID
	editing       uuid.UUID
	activePolygon uuid.UUID
	activePoint   int
	listeners     []TransitionListener
}

// NewMachine creates an idle machine. A non-positive threshold selects
// DefaultProximityThreshold.
func NewMachine(store *Store, threshold float64, logger *slog.Logger) *Machine {
	if threshold <= 0 {
		threshold = DefaultProximityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:       store,
		threshold:   threshold,
		logger:      logger,
		activePoint: -1,
	}
}

// Store returns the store the machine mutates.
func (m *Machine) Store() *Store { return m.store }

// Threshold returns the proximity threshold.
func (m *Machine) Threshold() float64 { return m.threshold }

// OnTransition registers a mode change listener.
func (m *Machine) OnTransition(l TransitionListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Selection returns the current selection state.
func (m *Machine) Selection() Selection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Selection{
		Mode:          m.mode,
		Hovered:       m.hovered,
		Editing:       m.editing,
		ActivePolygon: m.activePolygon,
		ActivePoint:   m.activePoint,
	}
}

// StartDrawing enters Drawing with an empty buffer. It is ignored while a
// vertex is being dragged.
func (m *Machine) StartDrawing() {
	m.mu.Lock()
	if m.mode == ModeDraggingVertex {
		m.mu.Unlock()
		return
	}
	from := m.setMode(ModeDrawing)
	m.mu.Unlock()

	m.store.ClearBuffer()
	m.fire(from, ModeDrawing)
}

// Cancel discards the drawing buffer and returns to Idle.
func (m *Machine) Cancel() {
	m.mu.Lock()
	if m.mode != ModeDrawing {
		m.mu.Unlock()
		return
	}
	from := m.setMode(ModeIdle)
	m.mu.Unlock()

	m.store.ClearBuffer()
	m.fire(from, ModeIdle)
}

// Click handles a pointer click at p. While drawing it either appends p to
// the buffer or, when the buffer has more than two points and p is within the
// threshold of the first one, commits the buffer without p. The committed
// polygon is returned with ok set.
func (m *Machine) Click(p geometry.Point2D) (poly Polygon, ok bool) {
	if m.Mode() != ModeDrawing {
		return Polygon{}, false
	}

	buf := m.store.Buffer()
	if len(buf) <= 2 || p.Distance(buf[0]) >= m.threshold {
		m.store.AppendBuffer(p)
		return Polygon{}, false
	}

	created, err := m.store.FinishBuffer()
	if err != nil {
		m.logger.Warn("close loop failed", "error", err)
		return Polygon{}, false
	}
	m.mu.Lock()
	from := m.setMode(ModeIdle)
	m.mu.Unlock()

	m.logger.Info("region committed", "id", created.ID, "name", created.Name, "points", len(created.Points))
	m.fire(from, ModeIdle)
	return created, true
}

// Move handles pointer motion at p.
func (m *Machine) Move(p geometry.Point2D) {
	m.mu.Lock()
	mode, id, idx := m.mode, m.activePolygon, m.activePoint
	m.mu.Unlock()

	switch mode {
	case ModeDrawing:
		buf := m.store.Buffer()
		if len(buf) > 0 && p.Distance(buf[len(buf)-1]) > m.threshold {
			m.store.AppendBuffer(p)
		}
	case ModeDraggingVertex:
		if err := m.store.UpdatePoint(id, idx, p); err != nil {
			m.logger.Warn("drag target vanished", "id", id, "index", idx, "error", err)
			m.mu.Lock()
			if m.mode != ModeDraggingVertex || m.activePolygon != id {
				m.mu.Unlock()
				return
			}
			from := m.endDrag()
			m.mu.Unlock()
			m.fire(from, ModeIdle)
		}
	}
}

// PressVertex starts dragging vertex index of polygon id. Only valid from Idle.
func (m *Machine) PressVertex(id uuid.UUID, index int) bool {
	m.mu.Lock()
	if m.mode != ModeIdle {
		m.mu.Unlock()
		return false
	}
	p, found := m.store.Get(id)
	if !found || index < 0 || index >= len(p.Points) {
		m.mu.Unlock()
		return false
	}
	m.activePolygon = id
	m.activePoint = index
	from := m.setMode(ModeDraggingVertex)
	m.mu.Unlock()
	m.fire(from, ModeDraggingVertex)
	return true
}

// Release ends a vertex drag on pointer-up.
func (m *Machine) Release() {
	m.mu.Lock()
	if m.mode != ModeDraggingVertex {
		m.mu.Unlock()
		return
	}
	from := m.endDrag()
	m.mu.Unlock()
	m.fire(from, ModeIdle)
}

// Leave handles the pointer leaving the surface. It ends a drag and clears hover.
func (m *Machine) Leave() {
	m.mu.Lock()
	m.hovered = uuid.Nil
	if m.mode != ModeDraggingVertex {
		m.mu.Unlock()
		return
	}
	from := m.endDrag()
	m.mu.Unlock()
	m.fire(from, ModeIdle)
}

// EnterPolygon marks id as hovered.
func (m *Machine) EnterPolygon(id uuid.UUID) {
	m.mu.Lock()
	m.hovered = id
	m.mu.Unlock()
}

// LeavePolygon clears hover if id is the hovered polygon.
func (m *Machine) LeavePolygon(id uuid.UUID) {
	m.mu.Lock()
	if m.hovered == id {
		m.hovered = uuid.Nil
	}
	m.mu.Unlock()
}

// BeginEdit marks id as the polygon whose finding form is open.
func (m *Machine) BeginEdit(id uuid.UUID) error {
	if _, ok := m.store.Get(id); !ok {
		return fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	m.mu.Lock()
	m.editing = id
	m.mu.Unlock()
	return nil
}

// EndEdit closes the finding form.
func (m *Machine) EndEdit() {
	m.mu.Lock()
	m.editing = uuid.Nil
	m.mu.Unlock()
}

// Delete removes polygon id from the store and from every selection slot
// that references it.
func (m *Machine) Delete(id uuid.UUID) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	m.mu.Lock()
	if m.hovered == id {
		m.hovered = uuid.Nil
	}
	if m.editing == id {
		m.editing = uuid.Nil
	}
	var from Mode
	dragged := m.mode == ModeDraggingVertex && m.activePolygon == id
	if dragged {
		from = m.endDrag()
	}
	m.mu.Unlock()
	if dragged {
		m.fire(from, ModeIdle)
	}
	return nil
}

// Reset returns to Idle and clears all selection. The store is not touched.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.hovered = uuid.Nil
	m.editing = uuid.Nil
	m.activePolygon = uuid.Nil
	m.activePoint = -1
	from := m.setMode(ModeIdle)
	m.mu.Unlock()
	if from != ModeIdle {
		m.fire(from, ModeIdle)
	}
}

func (m *Machine) endDrag() Mode {
	m.activePolygon = uuid.Nil
	m.activePoint = -1
	return m.setMode(ModeIdle)
}

// setMode changes mode and returns the previous one. Caller holds mu.
func (m *Machine) setMode(to Mode) Mode {
	from := m.mode
	m.mode = to
	if from != to {
		m.logger.Debug("mode transition", "from", from, "to", to)
	}
	return from
}

func (m *Machine) fire(from, to Mode) {
	if from == to {
		return
	}
	m.mu.Lock()
	listeners := m.listeners
	m.mu.Unlock()
	for _, l := range listeners {
		l(from, to)
	}
}
