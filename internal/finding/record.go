package finding

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"mammo-annotator/internal/annotation"
)

// Record is the input of a report export.
type Record struct {
	ID          string
	InputImage  string
	OutputImage string
	Findings    []Finding
	BIRADS      string
	Comments    []string
	// Regions are the session polygons; empty for fixed records.
	Regions   []annotation.Polygon
	CreatedAt time.Time
}

// Present returns the findings whose found flag is set, in record order.
func (r Record) Present() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Found {
			out = append(out, f)
		}
	}
	return out
}

// HasAssessment reports whether the record carries a score or comments.
func (r Record) HasAssessment() bool {
	return r.BIRADS != "" || len(r.Comments) > 0
}

// reserved keys are surfaced by the report layout itself.
var reserved = []string{"type", "found", "confidence"}

// ParseRecord decodes a report record:
//
//	{"id": ..., "input_img": url, "output_img": url,
//	 "report": [{"type": "mass", "found": 1, "confidence": 92, ...}],
//	 "BIRADS": "4" | 4, "comment": ["..."]}
func ParseRecord(data []byte) (Record, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}

	var r Record
	if v, err := obj.GetValue("id"); err == nil {
		r.ID, _ = scalarString(v)
	}
	r.InputImage, _ = obj.GetString("input_img")
	r.OutputImage, _ = obj.GetString("output_img")

	if _, ok := obj.Map()["report"]; ok {
		items, err := obj.GetObjectArray("report")
		if err != nil {
			return Record{}, fmt.Errorf("parse record: report: %w", err)
		}
		for i, item := range items {
			f, err := parseFinding(item)
			if err != nil {
				return Record{}, fmt.Errorf("parse record: finding %d: %w", i, err)
			}
			r.Findings = append(r.Findings, f)
		}
	}

	if v, err := obj.GetValue("BIRADS"); err == nil {
		r.BIRADS, _ = scalarString(v)
	}
	if comments, err := obj.GetStringArray("comment"); err == nil {
		r.Comments = comments
	} else if c, err := obj.GetString("comment"); err == nil && strings.TrimSpace(c) != "" {
		r.Comments = []string{c}
	}
	return r, nil
}

func parseFinding(o *jason.Object) (Finding, error) {
	typ, err := o.GetString("type")
	if err != nil {
		return Finding{}, fmt.Errorf("type: %w", err)
	}
	cat, err := ParseCategory(typ)
	if err != nil {
		return Finding{}, err
	}

	var f Finding
	if v, err := o.GetValue("found"); err == nil {
		f.Found = truthy(v)
	}
	if v, err := o.GetValue("confidence"); err == nil && v.Null() != nil {
		c, err := v.Float64()
		if err != nil {
			return Finding{}, fmt.Errorf("confidence: %w", err)
		}
		f.Confidence = &c
	}

	fields := map[string]string{}
	for k, v := range o.Map() {
		if slices.Contains(reserved, k) {
			continue
		}
		if s, ok := scalarString(v); ok {
			fields[k] = s
		}
	}

	take := func(key string) string {
		v := fields[key]
		delete(fields, key)
		return v
	}
	switch cat {
	case Mass:
		f.Payload = MassDetails{Shape: take("shape"), Margin: take("margin"), Density: take("density"), Size: take("size")}
	case Calcification:
		f.Payload = CalcificationDetails{Morphology: take("morphology"), Distribution: take("distribution")}
	case Axilla:
		f.Payload = AxillaDetails{LymphNodes: take("lymph_nodes"), Side: take("side")}
	case Tissue:
		f.Payload = TissueDetails{Density: take("density"), Composition: take("composition")}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if strings.TrimSpace(fields[k]) != "" {
			f.Extra = append(f.Extra, field(k, fields[k]))
		}
	}
	return f, nil
}

func scalarString(v *jason.Value) (string, bool) {
	if s, err := v.String(); err == nil {
		return s, true
	}
	if n, err := v.Number(); err == nil {
		return n.String(), true
	}
	if b, err := v.Boolean(); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

// truthy accepts 1/0, true/false and their string forms.
func truthy(v *jason.Value) bool {
	if b, err := v.Boolean(); err == nil {
		return b
	}
	if n, err := v.Float64(); err == nil {
		return n != 0
	}
	if s, err := v.String(); err == nil {
		b, _ := strconv.ParseBool(strings.TrimSpace(s))
		return b
	}
	return false
}
