package report

import (
	"errors"
	"fmt"
	"time"

	"mammo-annotator/internal/annotation"
	"mammo-annotator/internal/finding"
	imgpkg "mammo-annotator/internal/image"
	"mammo-annotator/internal/render"
	"mammo-annotator/pkg/colorutil"
)

// SessionRecord builds a record from the live session: the base image, an
// annotated rendering of every polygon, and the polygons as regions.
func SessionRecord(base *imgpkg.Layer, polygons []annotation.Polygon, palette colorutil.Palette, r *render.Renderer, now time.Time) (finding.Record, error) {
	if base == nil || base.Image == nil {
		return finding.Record{}, errors.New("no image loaded")
	}
	input, err := imgpkg.EncodeDataURL(base.Image)
	if err != nil {
		return finding.Record{}, fmt.Errorf("session input image: %w", err)
	}
	output, err := imgpkg.EncodeDataURL(r.RenderAnnotated(base.Image, polygons, palette))
	if err != nil {
		return finding.Record{}, fmt.Errorf("session annotated image: %w", err)
	}

	regions := make([]annotation.Polygon, len(polygons))
	for i, p := range polygons {
		regions[i] = p.Clone()
	}
	return finding.Record{
		InputImage:  input,
		OutputImage: output,
		Regions:     regions,
		CreatedAt:   now,
	}, nil
}
