// Package panels provides the side panels of the main window.
package panels

import (
	"errors"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/google/uuid"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/app"
	"mammo-annotator/internal/editor"
)

// FindingsPanel lists every region with its finding and hosts the edit form
// of the region being edited.
type FindingsPanel struct {
	state  *app.State
	win    fyne.Window
	logger *slog.Logger

	list    *fyne.Container
	scroll  *container.Scroll
	summary *widget.Label

	// Edit form
	form            *fyne.Container
	nameEntry       *widget.Entry
	detailsEntry    *widget.Entry
	confidenceEntry *widget.Entry
	refsBox         *fyne.Container
	refEntries      [][2]*widget.Entry
	errLabel        *widget.Label
	saveBtn         *widget.Button
	cancelBtn       *widget.Button
	addRefBtn       *widget.Button
}

// NewFindingsPanel creates the panel. win is used for confirmation dialogs
// and may be nil.
func NewFindingsPanel(state *app.State, win fyne.Window, logger *slog.Logger) *FindingsPanel {
	if logger == nil {
		logger = slog.Default()
	}
	p := &FindingsPanel{state: state, win: win, logger: logger}
	p.buildForm()

	p.summary = widget.NewLabel("")
	p.list = container.NewVBox()
	p.scroll = container.NewVScroll(p.list)
	p.rebuild()

	state.On(app.EventPolygonsChanged, func(interface{}) { p.rebuild() })
	state.On(app.EventImageLoaded, func(interface{}) { p.rebuild() })
	return p
}

// Container returns the panel for embedding in layouts.
func (p *FindingsPanel) Container() fyne.CanvasObject {
	return container.NewBorder(p.summary, nil, nil, nil, p.scroll)
}

// Edit opens the form for region id.
func (p *FindingsPanel) Edit(id uuid.UUID) {
	f, err := p.state.Editor.Open(id)
	if err != nil {
		p.logger.Warn("cannot edit region", "id", id, "error", err)
		return
	}
	p.fillForm(f)
	p.errLabel.Hide()
	p.rebuild()
	p.focus(p.nameEntry)
}

func (p *FindingsPanel) buildForm() {
	p.nameEntry = widget.NewEntry()
	p.nameEntry.SetPlaceHolder("Region name")

	p.detailsEntry = widget.NewMultiLineEntry()
	p.detailsEntry.SetPlaceHolder("Finding details")
	p.detailsEntry.Wrapping = fyne.TextWrapWord
	p.detailsEntry.SetMinRowsVisible(3)

	p.confidenceEntry = widget.NewEntry()
	p.confidenceEntry.SetPlaceHolder(fmt.Sprintf("%.0f to %.0f, step %.1f", editor.MinConfidence, editor.MaxConfidence, editor.ConfidenceStep))
	p.confidenceEntry.Validator = func(s string) error {
		_, err := editor.ParseConfidence(s)
		return err
	}

	p.refsBox = container.NewVBox()
	p.errLabel = widget.NewLabel("")
	p.errLabel.Importance = widget.DangerImportance
	p.errLabel.Wrapping = fyne.TextWrapWord
	p.errLabel.Hide()

	p.addRefBtn = widget.NewButtonWithIcon("Add reference", theme.ContentAddIcon(), p.addReference)
	p.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), p.submit)
	p.saveBtn.Importance = widget.HighImportance
	p.cancelBtn = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), p.cancel)

	p.form = container.NewVBox(
		widget.NewLabelWithStyle("Edit finding", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("Name", p.nameEntry),
			widget.NewFormItem("Confidence %", p.confidenceEntry),
			widget.NewFormItem("Details", p.detailsEntry),
		),
		widget.NewLabel("References"),
		p.refsBox,
		p.addRefBtn,
		p.errLabel,
		container.NewHBox(p.saveBtn, p.cancelBtn),
		widget.NewSeparator(),
	)
}

// fillForm copies f into the form widgets.
func (p *FindingsPanel) fillForm(f editor.Form) {
	p.nameEntry.SetText(f.Name)
	p.detailsEntry.SetText(f.Details)
	p.confidenceEntry.SetText(f.Confidence)

	p.refEntries = p.refEntries[:0]
	p.refsBox.RemoveAll()
	for i, ref := range f.References {
		title := widget.NewEntry()
		title.SetPlaceHolder("Title")
		title.SetText(ref.Title)
		source := widget.NewEntry()
		source.SetPlaceHolder("Source")
		source.SetText(ref.Source)
		p.refEntries = append(p.refEntries, [2]*widget.Entry{title, source})

		remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() { p.removeReference(i) })
		p.refsBox.Add(container.NewBorder(nil, nil, nil, remove, container.NewGridWithColumns(2, title, source)))
	}
	p.refsBox.Refresh()
}

// collectForm reads the form widgets.
func (p *FindingsPanel) collectForm() editor.Form {
	f := editor.Form{
		Name:       p.nameEntry.Text,
		Details:    p.detailsEntry.Text,
		Confidence: p.confidenceEntry.Text,
	}
	for _, e := range p.refEntries {
		f.References = append(f.References, annotation.Reference{Title: e[0].Text, Source: e[1].Text})
	}
	return f
}

func (p *FindingsPanel) addReference() {
	ed := p.state.Editor
	if err := ed.SetForm(p.collectForm()); err != nil {
		return
	}
	if err := ed.AddReference(); err != nil {
		return
	}
	p.fillForm(ed.Form())
}

func (p *FindingsPanel) removeReference(i int) {
	ed := p.state.Editor
	if err := ed.SetForm(p.collectForm()); err != nil {
		return
	}
	if err := ed.RemoveReference(i); err != nil {
		p.logger.Debug("remove reference", "index", i, "error", err)
		return
	}
	p.fillForm(ed.Form())
}

func (p *FindingsPanel) submit() {
	ed := p.state.Editor
	if err := ed.SetForm(p.collectForm()); err != nil {
		p.showError(err)
		return
	}
	if _, err := ed.Submit(); err != nil {
		p.showError(err)
		return
	}
	p.errLabel.Hide()
	p.rebuild()
}

func (p *FindingsPanel) cancel() {
	p.state.Editor.Cancel()
	p.errLabel.Hide()
	p.rebuild()
}

func (p *FindingsPanel) showError(err error) {
	msg := err.Error()
	if errors.Is(err, editor.ErrInvalidConfidence) {
		msg = "Confidence must be a number between 0 and 100."
	}
	p.errLabel.SetText(msg)
	p.errLabel.Show()
}

func (p *FindingsPanel) confirmDelete(v editor.View) {
	del := func() {
		if err := p.state.Editor.Delete(v.ID); err != nil {
			p.logger.Warn("delete region failed", "id", v.ID, "error", err)
		}
	}
	if p.win == nil {
		del()
		return
	}
	dialog.ShowConfirm("Delete region", fmt.Sprintf("Delete %q?", v.Name), func(ok bool) {
		if ok {
			del()
		}
	}, p.win)
}

// rebuild redraws the region list from the store.
func (p *FindingsPanel) rebuild() {
	views := p.state.Editor.Views()
	switch len(views) {
	case 0:
		p.summary.SetText("No regions. Use New Region to outline one.")
	case 1:
		p.summary.SetText("1 region")
	default:
		p.summary.SetText(fmt.Sprintf("%d regions", len(views)))
	}

	p.list.RemoveAll()
	for _, v := range views {
		if v.Editing {
			p.list.Add(p.form)
			continue
		}
		p.list.Add(p.card(v))
	}
	p.list.Refresh()
}

// card is the read view of one region.
func (p *FindingsPanel) card(v editor.View) fyne.CanvasObject {
	swatch := fynecanvas.NewRectangle(v.Swatch.Fill)
	swatch.StrokeColor = v.Swatch.Stroke
	swatch.StrokeWidth = 2
	swatch.SetMinSize(fyne.NewSize(14, 14))

	header := container.NewHBox(
		container.NewCenter(swatch),
		widget.NewLabelWithStyle(v.Name, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	if v.ConfidenceBadge != "" {
		badge := widget.NewLabel(v.ConfidenceBadge)
		badge.Importance = widget.HighImportance
		header.Add(badge)
	}

	rows := []fyne.CanvasObject{header}
	if v.Details != "" {
		label := "Show details"
		if v.Expanded {
			label = "Hide details"
		}
		id := v.ID
		rows = append(rows, widget.NewButton(label, func() {
			p.state.Editor.ToggleDetails(id)
			p.rebuild()
		}))
		if v.Expanded {
			details := widget.NewLabel(v.Details)
			details.Wrapping = fyne.TextWrapWord
			rows = append(rows, details)
		}
	}
	for i, ref := range v.References {
		text := fmt.Sprintf("[%d] %s", i+1, ref.Title)
		if ref.Source != "" {
			text += " (" + ref.Source + ")"
		}
		r := widget.NewLabel(text)
		r.Wrapping = fyne.TextWrapWord
		rows = append(rows, r)
	}

	rows = append(rows,
		container.NewHBox(
			widget.NewButtonWithIcon("Edit", theme.DocumentCreateIcon(), func() { p.Edit(v.ID) }),
			widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), func() { p.confirmDelete(v) }),
		),
		widget.NewSeparator(),
	)
	return container.NewVBox(rows...)
}

func (p *FindingsPanel) focus(obj fyne.Focusable) {
	if p.win == nil {
		return
	}
	p.win.Canvas().Focus(obj)
}
