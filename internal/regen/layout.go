package regen

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yaml
var defaultLayoutYAML []byte

// Placement positions one stamped value. X and Y are PDF points from the
// bottom-left corner of the page.
type Placement struct {
	Page     int     `yaml:"page" json:"page"`
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	FontSize float64 `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
}

// Layout maps field names to placements.
type Layout struct {
	FontSize            float64              `yaml:"fontSize"`
	ContainerLineHeight float64              `yaml:"containerLineHeight"`
	Fields              map[string]Placement `yaml:"fields"`
}

var ErrInvalidLayout = errors.New("invalid layout")

// DefaultLayout returns the embedded layout.
func DefaultLayout() Layout {
	layout, err := ParseLayout(defaultLayoutYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded layout: %v", err))
	}
	return layout
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(b []byte) (Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(b, &layout); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if layout.FontSize <= 0 {
		layout.FontSize = 9
	}
	if layout.ContainerLineHeight <= 0 {
		layout.ContainerLineHeight = layout.FontSize + 3
	}
	for name, p := range layout.Fields {
		if err := p.validate(); err != nil {
			return Layout{}, fmt.Errorf("%w: field %s: %v", ErrInvalidLayout, name, err)
		}
	}
	return layout, nil
}

func (p Placement) validate() error {
	if p.Page < 1 {
		return errors.New("page must be >= 1")
	}
	if p.X < 0 || p.Y < 0 {
		return errors.New("coordinates must be non-negative")
	}
	if p.FontSize < 0 {
		return errors.New("font size must be non-negative")
	}
	return nil
}

// With returns a copy of l with overrides applied. A zero page or font
// size in an override keeps the default.
func (l Layout) With(overrides map[string]Placement) (Layout, error) {
	out := Layout{
		FontSize:            l.FontSize,
		ContainerLineHeight: l.ContainerLineHeight,
		Fields:              make(map[string]Placement, len(l.Fields)),
	}
	for name, p := range l.Fields {
		out.Fields[name] = p
	}
	for name, o := range overrides {
		base, known := out.Fields[name]
		if !known {
			return Layout{}, fmt.Errorf("%w: unknown field %q", ErrInvalidLayout, name)
		}
		if o.Page == 0 {
			o.Page = base.Page
		}
		if o.FontSize == 0 {
			o.FontSize = base.FontSize
		}
		if err := o.validate(); err != nil {
			return Layout{}, fmt.Errorf("%w: field %s: %v", ErrInvalidLayout, name, err)
		}
		out.Fields[name] = o
	}
	return out, nil
}

func (l Layout) fontSize(p Placement) float64 {
	if p.FontSize > 0 {
		return p.FontSize
	}
	return l.FontSize
}
