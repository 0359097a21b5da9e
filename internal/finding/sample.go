package finding

import "time"

// SampleRecord returns a fixed record used by the demo export and tests.
func SampleRecord(id, input, output string) Record {
	return Record{
		ID:          id,
		InputImage:  input,
		OutputImage: output,
		CreatedAt:   time.Now(),
		Findings: []Finding{
			{
				Found:      true,
				Confidence: ptr(92.4),
				Payload:    MassDetails{Shape: "Irregular", Margin: "Spiculated", Density: "High", Size: "14 mm"},
			},
			{
				Found:   true,
				Payload: CalcificationDetails{Morphology: "Fine pleomorphic", Distribution: "Segmental"},
			},
			{
				Found:   false,
				Payload: AxillaDetails{},
			},
			{
				Found:      true,
				Confidence: ptr(78),
				Payload:    TissueDetails{Density: "Heterogeneously dense", Composition: "c"},
			},
		},
		BIRADS: "4",
		Comments: []string{
			"Suspicious mass in the upper outer quadrant.",
			"Tissue sampling is recommended.",
		},
	}
}

func ptr(v float64) *float64 { return &v }
