package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/locrender/internal/render"
)

// DefaultConfigPath is the conventional location of a render defaults file.
const DefaultConfigPath = "config/render.defaults.json"

// DefaultMaxHTMLCells bounds the number of cells written to an HTML heatmap.
const DefaultMaxHTMLCells = 40000

// RenderConfig is the JSON form of the render options. Every field is
// optional; the Get* methods supply defaults for anything omitted, so
// partial configs are safe.
type RenderConfig struct {
	Oversampling *float64 `json:"oversampling,omitempty"`
	BlurMethod   *string  `json:"blur_method,omitempty"`

	// Viewport is [[y_min, x_min], [y_max, x_max]] in native pixels.
	Viewport *[2][2]float64 `json:"viewport,omitempty"`

	// Workers bounds the adaptive splat worker pool (0 = GOMAXPROCS).
	Workers *int `json:"workers,omitempty"`

	// Export params
	MaxHTMLCells *int     `json:"max_html_cells,omitempty"`
	PNGWidthIn   *float64 `json:"png_width_in,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRenderConfig returns a RenderConfig with all fields unset.
func EmptyRenderConfig() *RenderConfig {
	return &RenderConfig{}
}

// DefaultRenderConfig returns a RenderConfig with every field set to its
// default value.
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{
		Oversampling: ptrFloat64(1.0),
		BlurMethod:   ptrString(render.BlurNone.String()),
		Workers:      ptrInt(0),
		MaxHTMLCells: ptrInt(DefaultMaxHTMLCells),
		PNGWidthIn:   ptrFloat64(8),
	}
}

// LoadRenderConfig loads a RenderConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRenderConfig(path string) (*RenderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRenderConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Errors wrap
// render.ErrInvalidConfiguration.
func (c *RenderConfig) Validate() error {
	if c.Oversampling != nil {
		if v := *c.Oversampling; !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: oversampling must be positive, got %v", render.ErrInvalidConfiguration, v)
		}
	}

	if c.BlurMethod != nil {
		if _, err := render.ParseBlurMethod(*c.BlurMethod); err != nil {
			return err
		}
	}

	if c.Viewport != nil {
		if vp := c.viewport(); !vp.Valid() {
			return fmt.Errorf("%w: viewport %s has a non-positive extent", render.ErrInvalidConfiguration, vp)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", render.ErrInvalidConfiguration, *c.Workers)
	}

	if c.MaxHTMLCells != nil && *c.MaxHTMLCells <= 0 {
		return fmt.Errorf("max_html_cells must be positive, got %d", *c.MaxHTMLCells)
	}

	if c.PNGWidthIn != nil && !(*c.PNGWidthIn > 0) {
		return fmt.Errorf("png_width_in must be positive, got %v", *c.PNGWidthIn)
	}

	return nil
}

func (c *RenderConfig) viewport() render.Viewport {
	v := *c.Viewport
	return render.Viewport{YMin: v[0][0], XMin: v[0][1], YMax: v[1][0], XMax: v[1][1]}
}

// SetViewport stores vp in the [[y_min, x_min], [y_max, x_max]] form.
func (c *RenderConfig) SetViewport(vp render.Viewport) {
	c.Viewport = &[2][2]float64{{vp.YMin, vp.XMin}, {vp.YMax, vp.XMax}}
}

// GetOversampling returns the oversampling factor or the default (1.0).
func (c *RenderConfig) GetOversampling() float64 {
	if c.Oversampling == nil {
		return 1.0
	}
	return *c.Oversampling
}

// GetBlurMethod returns the parsed blur method. Unparseable values fall back
// to BlurNone; Validate reports them.
func (c *RenderConfig) GetBlurMethod() render.BlurMethod {
	if c.BlurMethod == nil {
		return render.BlurNone
	}
	m, err := render.ParseBlurMethod(*c.BlurMethod)
	if err != nil {
		return render.BlurNone
	}
	return m
}

// GetViewport returns the configured viewport, or nil for the full frame.
func (c *RenderConfig) GetViewport() *render.Viewport {
	if c.Viewport == nil {
		return nil
	}
	vp := c.viewport()
	return &vp
}

// GetWorkers returns the worker bound or the default (0, meaning GOMAXPROCS).
func (c *RenderConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetMaxHTMLCells returns the HTML heatmap cell budget or the default.
func (c *RenderConfig) GetMaxHTMLCells() int {
	if c.MaxHTMLCells == nil {
		return DefaultMaxHTMLCells
	}
	return *c.MaxHTMLCells
}

// GetPNGWidthIn returns the PNG width in inches or the default (8).
func (c *RenderConfig) GetPNGWidthIn() float64 {
	if c.PNGWidthIn == nil {
		return 8
	}
	return *c.PNGWidthIn
}

// Options converts the config to render options. Call Validate first; an
// invalid blur method is only reported there.
func (c *RenderConfig) Options() render.Options {
	return render.Options{
		Oversampling: c.GetOversampling(),
		Viewport:     c.GetViewport(),
		Method:       c.GetBlurMethod(),
		Workers:      c.GetWorkers(),
	}
}
