// Package config loads the editor defaults from a JSON file into an
// explicit value that is passed to the components needing it. There is no
// process-wide mutable settings object: callers receive the loaded value
// once and treat it as immutable.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultConfigPath is the canonical defaults file. It is the single source
// of truth for editor defaults; the Go fallbacks below only cover fields
// the file leaves unset.
const DefaultConfigPath = "config/editor.defaults.json"

// EditorDefaults is the root configuration. Fields are pointers so a
// partial file can override just some of them, matching the runtime
// parameter endpoints.
type EditorDefaults struct {
	// Preview decimation targets for grid listings and plots.
	PreviewMaxRows *int `json:"preview_max_rows,omitempty"`
	PreviewMaxCols *int `json:"preview_max_cols,omitempty"`

	// Interpolation defaults.
	InterpolationMethod *string `json:"interpolation_method,omitempty"`

	// NaN convolution defaults.
	ConvolutionKernelSize *int     `json:"convolution_kernel_size,omitempty"`
	ConvolutionThreshold  *float64 `json:"convolution_threshold,omitempty"`

	// Maximum out-of-plane deviation for a polygon to count as planar.
	PlanarityTolerance *float64 `json:"planarity_tolerance,omitempty"`
}

// DefaultEditorDefaults returns the built-in fallback values.
func DefaultEditorDefaults() *EditorDefaults {
	rows, cols := 256, 256
	method := "linear"
	kernel := 3
	threshold := 0.5
	tol := 1e-6
	return &EditorDefaults{
		PreviewMaxRows:        &rows,
		PreviewMaxCols:        &cols,
		InterpolationMethod:   &method,
		ConvolutionKernelSize: &kernel,
		ConvolutionThreshold:  &threshold,
		PlanarityTolerance:    &tol,
	}
}

// LoadEditorDefaults reads a defaults file and overlays it on the built-in
// fallbacks. A missing file is not an error: the fallbacks apply.
func LoadEditorDefaults(path string) (*EditorDefaults, error) {
	cfg := DefaultEditorDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read defaults %s: %w", path, err)
	}

	var file EditorDefaults
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	cfg.merge(&file)
	return cfg, nil
}

func (c *EditorDefaults) merge(o *EditorDefaults) {
	if o.PreviewMaxRows != nil {
		c.PreviewMaxRows = o.PreviewMaxRows
	}
	if o.PreviewMaxCols != nil {
		c.PreviewMaxCols = o.PreviewMaxCols
	}
	if o.InterpolationMethod != nil {
		c.InterpolationMethod = o.InterpolationMethod
	}
	if o.ConvolutionKernelSize != nil {
		c.ConvolutionKernelSize = o.ConvolutionKernelSize
	}
	if o.ConvolutionThreshold != nil {
		c.ConvolutionThreshold = o.ConvolutionThreshold
	}
	if o.PlanarityTolerance != nil {
		c.PlanarityTolerance = o.PlanarityTolerance
	}
}

func (c *EditorDefaults) GetPreviewMaxRows() int {
	if c.PreviewMaxRows != nil {
		return *c.PreviewMaxRows
	}
	return 256
}

func (c *EditorDefaults) GetPreviewMaxCols() int {
	if c.PreviewMaxCols != nil {
		return *c.PreviewMaxCols
	}
	return 256
}

func (c *EditorDefaults) GetInterpolationMethod() string {
	if c.InterpolationMethod != nil {
		return *c.InterpolationMethod
	}
	return "linear"
}

func (c *EditorDefaults) GetConvolutionKernelSize() int {
	if c.ConvolutionKernelSize != nil {
		return *c.ConvolutionKernelSize
	}
	return 3
}

func (c *EditorDefaults) GetConvolutionThreshold() float64 {
	if c.ConvolutionThreshold != nil {
		return *c.ConvolutionThreshold
	}
	return 0.5
}

func (c *EditorDefaults) GetPlanarityTolerance() float64 {
	if c.PlanarityTolerance != nil {
		return *c.PlanarityTolerance
	}
	return 1e-6
}
