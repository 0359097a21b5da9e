// Package editor implements the per-polygon finding form and read view.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/finding"
	"mammo-annotator/pkg/colorutil"
)

var (
	ErrInvalidConfidence = errors.New("confidence must be a number between 0 and 100")
	ErrNotEditing        = errors.New("no finding is being edited")
	ErrReferenceIndex    = errors.New("reference index out of range")
)

// Confidence bounds and step of the form input.
const (
	MinConfidence  = 0.0
	MaxConfidence  = 100.0
	ConfidenceStep = 0.1
)

// Form is the editable state of an open finding form. Confidence is kept as
// the raw text the user typed.
type Form struct {
	Name       string
	Details    string
	Confidence string
	References []annotation.Reference
}

// View is the read-only presentation of a polygon's finding.
type View struct {
	ID              uuid.UUID
	Name            string
	Swatch          colorutil.Swatch
	ConfidenceBadge string
	Details         string
	Expanded        bool
	References      []annotation.Reference
	Editing         bool
}

// Editor holds at most one open form at a time.
type Editor struct {
	machine *annotation.Machine
	logger  *slog.Logger

	mu       sync.Mutex
	target   uuid.UUID
	form     Form
	expanded map[uuid.UUID]bool
}

// New returns an editor working on the machine's store.
func New(machine *annotation.Machine, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		machine:  machine,
		logger:   logger,
		expanded: map[uuid.UUID]bool{},
	}
}

// Open loads polygon id into the form and switches it to edit mode. Any form
// already open is discarded.
func (e *Editor) Open(id uuid.UUID) (Form, error) {
	p, ok := e.machine.Store().Get(id)
	if !ok {
		return Form{}, fmt.Errorf("open %s: %w", id, annotation.ErrNotFound)
	}
	if err := e.machine.BeginEdit(id); err != nil {
		return Form{}, err
	}

	f := Form{
		Name:       p.Name,
		Details:    p.Details,
		References: slices.Clone(p.References),
	}
	if p.Confidence != nil {
		f.Confidence = strconv.FormatFloat(*p.Confidence, 'f', -1, 64)
	}

	e.mu.Lock()
	e.target = id
	e.form = f
	e.mu.Unlock()
	return cloneForm(f), nil
}

// Editing returns the polygon whose form is open.
func (e *Editor) Editing() (uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target, e.target != uuid.Nil
}

// Form returns a copy of the open form.
func (e *Editor) Form() Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneForm(e.form)
}

// SetForm replaces the in-form values. Nothing is stored until Submit.
func (e *Editor) SetForm(f Form) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == uuid.Nil {
		return ErrNotEditing
	}
	e.form = cloneForm(f)
	return nil
}

// AddReference appends an empty reference row.
func (e *Editor) AddReference() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == uuid.Nil {
		return ErrNotEditing
	}
	e.form.References = append(e.form.References, annotation.Reference{})
	return nil
}

// RemoveReference deletes the reference row at index i.
func (e *Editor) RemoveReference(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target == uuid.Nil {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.form.References) {
		return fmt.Errorf("%w: %d", ErrReferenceIndex, i)
	}
	e.form.References = slices.Delete(slices.Clone(e.form.References), i, i+1)
	return nil
}

// Submit validates the form and writes name, details, confidence and the
// whole reference list in one update, then closes edit mode. On a validation
// error nothing is written and the form stays open.
func (e *Editor) Submit() (annotation.Polygon, error) {
	e.mu.Lock()
	id, f := e.target, cloneForm(e.form)
	e.mu.Unlock()
	if id == uuid.Nil {
		return annotation.Polygon{}, ErrNotEditing
	}

	conf, err := ParseConfidence(f.Confidence)
	if err != nil {
		e.logger.Debug("finding rejected", "id", id, "confidence", f.Confidence)
		return annotation.Polygon{}, err
	}

	current, ok := e.machine.Store().Get(id)
	if !ok {
		e.close()
		return annotation.Polygon{}, fmt.Errorf("submit %s: %w", id, annotation.ErrNotFound)
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = current.Name
	}

	md := annotation.Metadata{
		Name:       name,
		Details:    f.Details,
		Confidence: conf,
		References: compactReferences(f.References),
	}
	if err := e.machine.Store().UpdateMetadata(id, md); err != nil {
		return annotation.Polygon{}, err
	}
	e.close()

	updated, _ := e.machine.Store().Get(id)
	e.logger.Info("finding saved", "id", id, "name", updated.Name)
	return updated, nil
}

// Cancel discards in-form edits.
func (e *Editor) Cancel() {
	e.close()
}

// Delete removes polygon id and closes its form if open.
func (e *Editor) Delete(id uuid.UUID) error {
	if err := e.machine.Delete(id); err != nil {
		return err
	}
	e.mu.Lock()
	if e.target == id {
		e.target = uuid.Nil
		e.form = Form{}
	}
	delete(e.expanded, id)
	e.mu.Unlock()
	e.logger.Info("region deleted", "id", id)
	return nil
}

// ToggleDetails flips the expanded state of a polygon's detail text.
func (e *Editor) ToggleDetails(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded[id] = !e.expanded[id]
	return e.expanded[id]
}

// View returns the read view of polygon id.
func (e *Editor) View(id uuid.UUID) (View, error) {
	p, ok := e.machine.Store().Get(id)
	if !ok {
		return View{}, fmt.Errorf("view %s: %w", id, annotation.ErrNotFound)
	}
	e.mu.Lock()
	expanded, editing := e.expanded[id], e.target == id
	e.mu.Unlock()

	v := View{
		ID:         p.ID,
		Name:       p.Name,
		Swatch:     e.machine.Store().Palette().At(p.ColorIndex),
		Details:    p.Details,
		Expanded:   expanded,
		References: p.References,
		Editing:    editing,
	}
	if p.Confidence != nil {
		v.ConfidenceBadge = finding.FormatPercent(*p.Confidence)
	}
	return v, nil
}

// Views returns read views for every polygon in store order.
func (e *Editor) Views() []View {
	polys := e.machine.Store().Polygons()
	out := make([]View, 0, len(polys))
	for _, p := range polys {
		if v, err := e.View(p.ID); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func (e *Editor) close() {
	e.mu.Lock()
	e.target = uuid.Nil
	e.form = Form{}
	e.mu.Unlock()
	e.machine.EndEdit()
}

// ParseConfidence converts form text to a confidence value. Blank input means
// unset. Anything that is not a finite number in [0,100] is rejected. Valid
// values are rounded to the 0.1 step.
func ParseConfidence(s string) (*float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConfidence, s)
	}
	if v < MinConfidence || v > MaxConfidence {
		return nil, fmt.Errorf("%w: %g", ErrInvalidConfidence, v)
	}
	v = math.Round(v/ConfidenceStep) * ConfidenceStep
	v = math.Round(v*10) / 10
	return &v, nil
}

// compactReferences drops rows left empty in the form; other rows are kept
// as typed.
func compactReferences(refs []annotation.Reference) []annotation.Reference {
	out := make([]annotation.Reference, 0, len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Source) == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func cloneForm(f Form) Form {
	f.References = slices.Clone(f.References)
	return f
}
