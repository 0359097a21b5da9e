package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 20.0, cfg.Annotation.ProximityThreshold)
	assert.Equal(t, []string{"Red", "Blue", "Green", "Orange", "Purple"}, cfg.Annotation.Palette)
	assert.Equal(t, 1.0, cfg.View.MinZoom)
	assert.Equal(t, 2.0, cfg.View.MaxZoom)
	assert.Equal(t, 0.1, cfg.View.ZoomStep)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Samples.Count)
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Palette().Size())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annotator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
annotation:
  proximity_threshold: 12
  palette: [teal, "#102030"]
view:
  max_zoom: 3
fetch:
  timeout: 2s
`), 0o644))

	t.Setenv("ANNOTATOR_SAMPLES_COUNT", "7")
	t.Setenv("ANNOTATOR_LOG_LEVEL", "debug")

	cfg, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 12.0, cfg.Annotation.ProximityThreshold)
	assert.Equal(t, 2, cfg.Palette().Size())
	assert.Equal(t, "Teal", cfg.Palette().At(0).Name)
	assert.Equal(t, 3.0, cfg.ZoomLimits().Max)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 7, cfg.Samples.Count)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate_PageSizes(t *testing.T) {
	for _, ps := range []string{"A4", "letter", "Legal"} {
		cfg := Default()
		cfg.Export.PageSize = ps
		assert.Empty(t, cfg.Validate(), ps)
		assert.Equal(t, ps, cfg.Export.PageSize)
	}
	cfg := Default()
	cfg.Export.PageSize = "B5"
	assert.NotEmpty(t, cfg.Validate())
	assert.Equal(t, "A4", cfg.Export.PageSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_ReplacesInvalid(t *testing.T) {
	cfg := Default()
	cfg.Annotation.ProximityThreshold = -1
	cfg.Annotation.Palette = []string{"not-a-color"}
	cfg.View.MinZoom, cfg.View.MaxZoom = 3, 1
	cfg.View.ZoomStep = 0
	cfg.Log.Format = "xml"

	warnings := cfg.Validate()
	assert.Len(t, warnings, 5)
	assert.Equal(t, 20.0, cfg.Annotation.ProximityThreshold)
	assert.Equal(t, 1.0, cfg.View.MinZoom)
	assert.Equal(t, 2.0, cfg.View.MaxZoom)
	assert.Equal(t, 0.1, cfg.View.ZoomStep)
	assert.Equal(t, "text", cfg.Log.Format)
}
