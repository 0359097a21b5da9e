package report

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/go-pdf/fpdf"

	"mammo-annotator/internal/finding"
	"mammo-annotator/pkg/colorutil"
)

const (
	margin       = 15.0
	columnGap    = 6.0
	maxImageH    = 110.0
	lineH        = 6.0
	labelW       = 50.0
	swatchSize   = 4.0
	bannerH      = 26.0
	sectionGap   = 8.0
	placeholderR = 0.75
	fontFamily   = "Helvetica"
)

var (
	bannerColor = color.RGBA{R: 0x1E, G: 0x3A, B: 0x8A, A: 0xFF}
	mutedColor  = color.RGBA{R: 0x64, G: 0x74, B: 0x8B, A: 0xFF}
	panelColor  = color.RGBA{R: 0xF1, G: 0xF5, B: 0xF9, A: 0xFF}
)

type document struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	palette  colorutil.Palette
	pageW    float64
	pageH    float64
	contentW float64
}

type layoutStats struct {
	placeholders int
}

// PageSizes lists the accepted page sizes.
var PageSizes = []string{"A4", "Letter", "Legal"}

// ParsePageSize returns the canonical page size name for s, case-insensitively.
func ParsePageSize(s string) (string, error) {
	for _, ps := range PageSizes {
		if strings.EqualFold(strings.TrimSpace(s), ps) {
			return ps, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want %s)", ErrPageSize, s, strings.Join(PageSizes, ", "))
}

func newDocument(opts Options) *document {
	size, err := ParsePageSize(opts.PageSize)
	if err != nil {
		size = PageSizes[0]
	}
	pdf := fpdf.New("P", "mm", size, "")
	pdf.SetCompression(opts.Compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")
	w, h := pdf.GetPageSize()

	d := &document{
		pdf:      pdf,
		tr:       pdf.UnicodeTranslatorFromDescriptor(""),
		palette:  opts.Palette,
		pageW:    w,
		pageH:    h,
		contentW: w - 2*margin,
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin + 2)
		pdf.SetFont(fontFamily, "I", 8)
		d.textColor(mutedColor)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return d
}

// build lays the record out top-down with a running cursor.
func (d *document) build(rec finding.Record, images [2]embedded) layoutStats {
	pdf := d.pdf
	pdf.SetTitle("Medical Report "+rec.ID, true)
	pdf.SetCreator("mammo-annotator", true)
	pdf.AddPage()

	d.banner(rec)
	stats := layoutStats{placeholders: d.imagePair(images)}
	if len(rec.Findings) > 0 || len(rec.Regions) == 0 {
		d.findings(rec.Present())
	}
	if len(rec.Regions) > 0 {
		d.regions(rec)
	}
	if rec.HasAssessment() {
		d.assessment(rec)
	}
	return stats
}

func (d *document) banner(rec finding.Record) {
	pdf := d.pdf
	d.fillColor(bannerColor)
	pdf.Rect(0, 0, d.pageW, bannerH, "F")

	pdf.SetXY(margin, 6)
	pdf.SetFont(fontFamily, "B", 18)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(d.contentW, 9, d.tr("Mammography Analysis Report"), "", 1, "L", false, 0, "")

	pdf.SetX(margin)
	pdf.SetFont(fontFamily, "", 10)
	meta := "Generated " + rec.CreatedAt.Format("2006-01-02 15:04")
	if rec.ID != "" {
		meta = "Report ID " + rec.ID + "    " + meta
	}
	pdf.CellFormat(d.contentW, 6, d.tr(meta), "", 1, "L", false, 0, "")
	pdf.SetY(bannerH + sectionGap)
}

// imagePair places both images side by side and returns the number of
// placeholders drawn.
func (d *document) imagePair(images [2]embedded) int {
	pdf := d.pdf
	colW := (d.contentW - columnGap) / 2
	top := pdf.GetY()

	pdf.SetFont(fontFamily, "B", 11)
	d.textColor(colorutil.Black)
	for i, img := range images {
		pdf.SetXY(margin+float64(i)*(colW+columnGap), top)
		pdf.CellFormat(colW, lineH, d.tr(img.label), "", 0, "L", false, 0, "")
	}
	top += lineH + 1

	placeholders := 0
	rowH := 0.0
	for i, img := range images {
		x := margin + float64(i)*(colW+columnGap)
		var h float64
		if img.err == nil && img.width > 0 {
			h = d.placeImage(fmt.Sprintf("slot-%d", i), img, x, top, colW)
		}
		if h == 0 {
			h = d.placeholder(x, top, colW)
			placeholders++
		}
		rowH = max(rowH, h)
	}
	pdf.SetY(top + rowH + sectionGap)
	return placeholders
}

// placeImage scales the image to the column width, preserving aspect ratio,
// and shrinks both sides if the height would exceed maxImageH.
func (d *document) placeImage(name string, img embedded, x, y, colW float64) float64 {
	w := colW
	h := w * float64(img.height) / float64(img.width)
	if h > maxImageH {
		w *= maxImageH / h
		h = maxImageH
	}
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
	if d.pdf.Err() {
		d.pdf.ClearError()
		return 0
	}
	d.pdf.ImageOptions(name, x+(colW-w)/2, y, w, h, false, opts, 0, "")
	return h
}

func (d *document) placeholder(x, y, colW float64) float64 {
	pdf := d.pdf
	h := colW * placeholderR
	d.fillColor(panelColor)
	d.drawColor(mutedColor)
	pdf.Rect(x, y, colW, h, "FD")
	pdf.SetXY(x, y+h/2-lineH/2)
	pdf.SetFont(fontFamily, "I", 10)
	d.textColor(mutedColor)
	pdf.CellFormat(colW, lineH, d.tr("Failed to load image"), "", 0, "C", false, 0, "")
	return h
}

func (d *document) findings(present []finding.Finding) {
	pdf := d.pdf
	d.heading("Findings")

	if len(present) == 0 {
		pdf.SetFont(fontFamily, "I", 10)
		d.textColor(mutedColor)
		pdf.CellFormat(d.contentW, lineH, d.tr("No findings reported."), "", 1, "L", false, 0, "")
		pdf.Ln(sectionGap / 2)
		return
	}

	for _, f := range present {
		fields := f.Fields()
		d.ensureSpace(lineH*float64(len(fields)+1) + 4)

		y := pdf.GetY()
		d.swatch(margin, y+(lineH-swatchSize)/2, f.Category().Color())
		pdf.SetXY(margin+swatchSize+2, y)
		pdf.SetFont(fontFamily, "B", 11)
		d.textColor(colorutil.Black)
		pdf.CellFormat(d.contentW/2, lineH, d.tr(f.Category().Label()), "", 0, "L", false, 0, "")
		if c := f.ConfidenceText(); c != "" {
			pdf.SetFont(fontFamily, "", 10)
			d.textColor(mutedColor)
			pdf.SetX(margin + d.contentW/2)
			pdf.CellFormat(d.contentW/2, lineH, d.tr("Confidence: "+c), "", 0, "R", false, 0, "")
		}
		pdf.Ln(lineH)

		for _, fl := range fields {
			d.row(fl.Label, fl.Value)
		}
		pdf.Ln(3)
	}
	pdf.Ln(sectionGap / 2)
}

func (d *document) regions(rec finding.Record) {
	pdf := d.pdf
	d.heading("Regions")

	for _, p := range rec.Regions {
		d.ensureSpace(lineH * 3)
		y := pdf.GetY()
		d.swatch(margin, y+(lineH-swatchSize)/2, d.palette.At(p.ColorIndex).Stroke)
		pdf.SetXY(margin+swatchSize+2, y)
		pdf.SetFont(fontFamily, "B", 11)
		d.textColor(colorutil.Black)
		pdf.CellFormat(d.contentW/2, lineH, d.tr(p.Name), "", 0, "L", false, 0, "")

		c := p.Centroid()
		meta := fmt.Sprintf("%d points, area %.0f px, perimeter %.0f px, centre (%.0f, %.0f)",
			len(p.Points), p.Area(), p.Perimeter(), c.X, c.Y)
		if p.Confidence != nil {
			meta = "Confidence: " + finding.FormatPercent(*p.Confidence) + "    " + meta
		}
		pdf.SetFont(fontFamily, "", 9)
		d.textColor(mutedColor)
		pdf.SetX(margin + d.contentW/2)
		pdf.CellFormat(d.contentW/2, lineH, d.tr(meta), "", 1, "R", false, 0, "")

		if details := strings.TrimSpace(p.Details); details != "" {
			pdf.SetFont(fontFamily, "", 10)
			d.textColor(colorutil.Black)
			pdf.SetX(margin + swatchSize + 2)
			pdf.MultiCell(d.contentW-swatchSize-2, 5, d.tr(details), "", "L", false)
		}
		for i, ref := range p.References {
			text := fmt.Sprintf("[%d] %s", i+1, ref.Title)
			if ref.Source != "" {
				text += " (" + ref.Source + ")"
			}
			pdf.SetFont(fontFamily, "", 9)
			d.textColor(mutedColor)
			pdf.SetX(margin + swatchSize + 2)
			pdf.MultiCell(d.contentW-swatchSize-2, 4.5, d.tr(text), "", "L", false)
		}
		pdf.Ln(3)
	}
	pdf.Ln(sectionGap / 2)
}

func (d *document) assessment(rec finding.Record) {
	pdf := d.pdf
	d.ensureSpace(lineH*float64(len(rec.Comments)+3) + 6)
	d.heading("Assessment")

	top := pdf.GetY()
	pdf.SetX(margin + 3)
	if rec.BIRADS != "" {
		pdf.SetFont(fontFamily, "B", 12)
		d.textColor(colorutil.Black)
		pdf.CellFormat(d.contentW-6, lineH+1, d.tr("BI-RADS Category: "+rec.BIRADS), "", 1, "L", false, 0, "")
	}
	if len(rec.Comments) > 0 {
		pdf.SetX(margin + 3)
		pdf.SetFont(fontFamily, "B", 10)
		pdf.CellFormat(d.contentW-6, lineH, d.tr("Comments"), "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 10)
		for i, c := range rec.Comments {
			pdf.SetX(margin + 3)
			pdf.MultiCell(d.contentW-6, 5, d.tr(fmt.Sprintf("%d. %s", i+1, c)), "", "L", false)
		}
	}
	bottom := pdf.GetY() + 2
	// Frame only when the block did not break across pages.
	if bottom > top {
		d.drawColor(bannerColor)
		pdf.SetLineWidth(0.4)
		pdf.Rect(margin, top-2, d.contentW, bottom-top+2, "D")
	}
	pdf.SetY(bottom + sectionGap/2)
}

func (d *document) heading(title string) {
	pdf := d.pdf
	d.ensureSpace(lineH * 3)
	pdf.SetX(margin)
	pdf.SetFont(fontFamily, "B", 14)
	d.textColor(bannerColor)
	pdf.CellFormat(d.contentW, lineH+2, d.tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (d *document) row(label, value string) {
	pdf := d.pdf
	pdf.SetX(margin + swatchSize + 2)
	pdf.SetFont(fontFamily, "", 10)
	d.textColor(mutedColor)
	pdf.CellFormat(labelW, lineH, d.tr(label), "", 0, "L", false, 0, "")
	d.textColor(colorutil.Black)
	pdf.MultiCell(d.contentW-labelW-swatchSize-2, lineH, d.tr(value), "", "L", false)
}

// ensureSpace starts a new page when h millimeters do not fit.
func (d *document) ensureSpace(h float64) {
	if d.pdf.GetY()+h > d.pageH-margin {
		d.pdf.AddPage()
	}
}

func (d *document) swatch(x, y float64, c color.RGBA) {
	d.fillColor(c)
	d.pdf.Rect(x, y, swatchSize, swatchSize, "F")
}

func (d *document) fillColor(c color.RGBA) { d.pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }
func (d *document) drawColor(c color.RGBA) { d.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }
func (d *document) textColor(c color.RGBA) { d.pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }
