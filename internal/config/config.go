// Package config loads annotator settings from defaults, config.yaml, .env
// and ANNOTATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mammo-annotator/internal/viewport"
	"mammo-annotator/pkg/colorutil"
)

// EnvPrefix prefixes every environment override, e.g. ANNOTATOR_VIEW_MAX_ZOOM.
const EnvPrefix = "ANNOTATOR"

// Config holds all settings.
type Config struct {
	Annotation AnnotationConfig `mapstructure:"annotation"`
	View       ViewConfig       `mapstructure:"view"`
	Export     ExportConfig     `mapstructure:"export"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Samples    SamplesConfig    `mapstructure:"samples"`
	Log        LogConfig        `mapstructure:"log"`
}

type AnnotationConfig struct {
	ProximityThreshold float64  `mapstructure:"proximity_threshold"`
	Palette            []string `mapstructure:"palette"`
}

type ViewConfig struct {
	MinZoom      float64 `mapstructure:"min_zoom"`
	MaxZoom      float64 `mapstructure:"max_zoom"`
	ZoomStep     float64 `mapstructure:"zoom_step"`
	HandleRadius float64 `mapstructure:"handle_radius"`
}

type ExportConfig struct {
	OutputDir  string `mapstructure:"output_dir"`
	PageSize   string `mapstructure:"page_size"`
	MaxImagePx int    `mapstructure:"max_image_px"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SamplesConfig struct {
	AutoGenerate bool  `mapstructure:"auto_generate"`
	Count        int   `mapstructure:"count"`
	Seed         int64 `mapstructure:"seed"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers every key so env overrides apply to all of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("annotation.proximity_threshold", 20.0)
	v.SetDefault("annotation.palette", colorutil.DefaultNames)

	v.SetDefault("view.min_zoom", 1.0)
	v.SetDefault("view.max_zoom", 2.0)
	v.SetDefault("view.zoom_step", 0.1)
	v.SetDefault("view.handle_radius", 5.0)

	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.page_size", "A4")
	v.SetDefault("export.max_image_px", 1600)

	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.cache_ttl", 10*time.Minute)
	v.SetDefault("fetch.user_agent", "mammo-annotator/1.0")

	v.SetDefault("samples.auto_generate", true)
	v.SetDefault("samples.count", 3)
	v.SetDefault("samples.seed", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration. When path is empty, config.yaml is looked up in
// the working directory and the user config directory; a missing file is not
// an error. The returned warnings list values that Validate replaced.
func Load(path string) (*Config, []string, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range searchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, cfg.Validate(), nil
}

func searchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "mammo-annotator"))
	}
	return paths
}

// Validate replaces invalid values with defaults and reports what changed.
func (c *Config) Validate() []string {
	d := Default()
	var warnings []string
	fix := func(bad bool, key string, apply func()) {
		if bad {
			apply()
			warnings = append(warnings, fmt.Sprintf("%s is invalid, using default", key))
		}
	}

	fix(c.Annotation.ProximityThreshold <= 0, "annotation.proximity_threshold", func() {
		c.Annotation.ProximityThreshold = d.Annotation.ProximityThreshold
	})
	_, perr := colorutil.NewPalette(c.Annotation.Palette)
	fix(perr != nil, "annotation.palette", func() { c.Annotation.Palette = d.Annotation.Palette })

	fix(c.View.MinZoom <= 0 || c.View.MaxZoom < c.View.MinZoom, "view.min_zoom/view.max_zoom", func() {
		c.View.MinZoom, c.View.MaxZoom = d.View.MinZoom, d.View.MaxZoom
	})
	fix(c.View.ZoomStep <= 0, "view.zoom_step", func() { c.View.ZoomStep = d.View.ZoomStep })
	fix(c.View.HandleRadius <= 0, "view.handle_radius", func() { c.View.HandleRadius = d.View.HandleRadius })

	fix(c.Export.OutputDir == "", "export.output_dir", func() { c.Export.OutputDir = d.Export.OutputDir })
	ps := strings.ToUpper(c.Export.PageSize)
	fix(ps != "A4" && ps != "LETTER" && ps != "LEGAL", "export.page_size", func() { c.Export.PageSize = d.Export.PageSize })
	fix(c.Export.MaxImagePx < 64, "export.max_image_px", func() { c.Export.MaxImagePx = d.Export.MaxImagePx })

	fix(c.Fetch.Timeout <= 0, "fetch.timeout", func() { c.Fetch.Timeout = d.Fetch.Timeout })
	fix(c.Fetch.CacheTTL <= 0, "fetch.cache_ttl", func() { c.Fetch.CacheTTL = d.Fetch.CacheTTL })

	fix(c.Samples.Count < 0, "samples.count", func() { c.Samples.Count = d.Samples.Count })

	fix(c.Log.Format != "text" && c.Log.Format != "json", "log.format", func() { c.Log.Format = d.Log.Format })
	return warnings
}

// Palette returns the configured annotation palette.
func (c *Config) Palette() colorutil.Palette {
	p, err := colorutil.NewPalette(c.Annotation.Palette)
	if err != nil {
		return colorutil.DefaultPalette()
	}
	return p
}

// ZoomLimits returns the configured zoom range.
func (c *Config) ZoomLimits() viewport.Limits {
	return viewport.Limits{Min: c.View.MinZoom, Max: c.View.MaxZoom, Step: c.View.ZoomStep}
}
