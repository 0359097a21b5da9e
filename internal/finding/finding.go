// Package finding models report records and their categorized findings.
package finding

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"unicode"
	"unicode/utf8"

	"mammo-annotator/pkg/colorutil"
)

var ErrUnknownCategory = errors.New("unknown finding category")

// Category is the closed set of finding kinds.
type Category int

const (
	Mass Category = iota + 1
	Calcification
	Axilla
	Tissue
)

// Categories lists every category in report order.
var Categories = []Category{Mass, Calcification, Axilla, Tissue}

// ParseCategory maps a record "type" string to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mass", "masses":
		return Mass, nil
	case "calcification", "calcifications", "calc":
		return Calcification, nil
	case "axilla", "axillary":
		return Axilla, nil
	case "tissue", "breast_tissue":
		return Tissue, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) String() string {
	switch c {
	case Mass:
		return "mass"
	case Calcification:
		return "calcification"
	case Axilla:
		return "axilla"
	case Tissue:
		return "tissue"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label is the heading used in reports.
func (c Category) Label() string {
	switch c {
	case Mass:
		return "Mass"
	case Calcification:
		return "Calcification"
	case Axilla:
		return "Axillary Lymph Nodes"
	case Tissue:
		return "Breast Tissue"
	default:
		return "Unknown"
	}
}

// Color is the swatch drawn next to findings of this category.
func (c Category) Color() color.RGBA {
	name := "teal"
	switch c {
	case Mass:
		name = "red"
	case Calcification:
		name = "orange"
	case Axilla:
		name = "blue"
	case Tissue:
		name = "purple"
	}
	col, _ := colorutil.ParseColor(name)
	return col
}

// Field is one label/value row of a finding.
type Field struct {
	Key   string
	Label string
	Value string
}

// Payload is the category-specific part of a finding.
type Payload interface {
	Category() Category
	Fields() []Field
}

type MassDetails struct {
	Shape   string
	Margin  string
	Density string
	Size    string
}

func (MassDetails) Category() Category { return Mass }

func (d MassDetails) Fields() []Field {
	return nonEmpty(
		field("shape", d.Shape),
		field("margin", d.Margin),
		field("density", d.Density),
		field("size", d.Size),
	)
}

type CalcificationDetails struct {
	Morphology   string
	Distribution string
}

func (CalcificationDetails) Category() Category { return Calcification }

func (d CalcificationDetails) Fields() []Field {
	return nonEmpty(
		field("morphology", d.Morphology),
		field("distribution", d.Distribution),
	)
}

type AxillaDetails struct {
	LymphNodes string
	Side       string
}

func (AxillaDetails) Category() Category { return Axilla }

func (d AxillaDetails) Fields() []Field {
	return nonEmpty(
		field("lymph_nodes", d.LymphNodes),
		field("side", d.Side),
	)
}

type TissueDetails struct {
	Density     string
	Composition string
}

func (TissueDetails) Category() Category { return Tissue }

func (d TissueDetails) Fields() []Field {
	return nonEmpty(
		field("density", d.Density),
		field("composition", d.Composition),
	)
}

// Finding is one entry of a report record.
type Finding struct {
	Found      bool
	Confidence *float64
	Payload    Payload
	// Extra holds scalar fields not known to the payload, sorted by key.
	Extra []Field
}

// Category returns the payload category.
func (f Finding) Category() Category {
	if f.Payload == nil {
		return 0
	}
	return f.Payload.Category()
}

// Fields returns the payload rows followed by the extra rows.
func (f Finding) Fields() []Field {
	var out []Field
	if f.Payload != nil {
		out = append(out, f.Payload.Fields()...)
	}
	return append(out, f.Extra...)
}

// ConfidenceText formats the confidence as a percentage, or "" when unset.
func (f Finding) ConfidenceText() string {
	if f.Confidence == nil {
		return ""
	}
	return FormatPercent(*f.Confidence)
}

// FormatPercent renders v with at most one decimal: 87.5%, 90%.
func FormatPercent(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + "%"
}

func field(key, value string) Field {
	return Field{Key: key, Label: Humanize(key), Value: value}
}

func nonEmpty(fields ...Field) []Field {
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

// Humanize turns a record key like "lymph_nodes" into "Lymph Nodes".
func Humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
