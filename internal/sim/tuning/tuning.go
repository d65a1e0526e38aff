package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dashmap.ai/internal/sim/mathx"
)

type Tuning struct {
	Map    MapTuning    `yaml:"map"`
	Render RenderTuning `yaml:"render"`
	Demo   DemoTuning   `yaml:"demo"`
}

type MapTuning struct {
	// Tiles tracked around the observer's tile in each direction.
	RadiusTiles int `yaml:"radius_tiles"`
	// 0 disables the cap; dirty tiles beyond it carry over to the next tick.
	MaxTilesPerRebuild int `yaml:"max_tiles_per_rebuild"`
	// Blocks above the eye the ceiling-world probe starts at.
	CeilingProbeOffset int `yaml:"ceiling_probe_offset"`
}

type RenderTuning struct {
	CircleRadius    int     `yaml:"circle_radius"`
	BorderThickness int     `yaml:"border_thickness"`
	LabelInset      int     `yaml:"label_inset"`
	Margin          int     `yaml:"margin"`
	CoordsOffset    int     `yaml:"coords_offset"`
	FontSize        float64 `yaml:"font_size"`
	HeadingBase     float64 `yaml:"heading_base"`
	HeadingHeight   float64 `yaml:"heading_height"`

	TextColor    string `yaml:"text_color"`
	BorderColor  string `yaml:"border_color"`
	HeadingColor string `yaml:"heading_color"`
}

type DemoTuning struct {
	TickRateHz  int     `yaml:"tick_rate_hz"`
	FrameRateHz int     `yaml:"frame_rate_hz"`
	Speed       float64 `yaml:"speed"` // blocks per tick
	CanvasSize  int     `yaml:"canvas_size"`
}

func Defaults() Tuning {
	return Tuning{
		Map: MapTuning{
			RadiusTiles:        3,
			MaxTilesPerRebuild: 0,
			CeilingProbeOffset: 3,
		},
		Render: RenderTuning{
			CircleRadius:    40,
			BorderThickness: 2,
			LabelInset:      1,
			Margin:          10,
			CoordsOffset:    5,
			FontSize:        8,
			HeadingBase:     5,
			HeadingHeight:   8,
			TextColor:       "#FFFFFF",
			BorderColor:     "#34373E",
			HeadingColor:    "#000000",
		},
		Demo: DemoTuning{
			TickRateHz:  20,
			FrameRateHz: 30,
			Speed:       0.6,
			CanvasSize:  256,
		},
	}
}

// Load reads path on top of Defaults, so omitted keys keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Normalize(), nil
}

// Normalize replaces out-of-range values with their defaults.
func (t Tuning) Normalize() Tuning {
	d := Defaults()
	out := t
	out.Map.RadiusTiles = mathx.ClampWithDefault(t.Map.RadiusTiles, 1, 32, d.Map.RadiusTiles)
	out.Map.MaxTilesPerRebuild = mathx.ClampWithDefault(t.Map.MaxTilesPerRebuild, 0, 1<<20, d.Map.MaxTilesPerRebuild)
	out.Map.CeilingProbeOffset = mathx.ClampWithDefault(t.Map.CeilingProbeOffset, 0, 64, d.Map.CeilingProbeOffset)

	out.Render.CircleRadius = mathx.ClampWithDefault(t.Render.CircleRadius, 8, 1024, d.Render.CircleRadius)
	out.Render.BorderThickness = mathx.ClampWithDefault(t.Render.BorderThickness, 0, 64, d.Render.BorderThickness)
	out.Render.LabelInset = mathx.ClampWithDefault(t.Render.LabelInset, 0, out.Render.CircleRadius, d.Render.LabelInset)
	out.Render.Margin = mathx.ClampWithDefault(t.Render.Margin, 0, 4096, d.Render.Margin)
	out.Render.CoordsOffset = mathx.ClampWithDefault(t.Render.CoordsOffset, 0, 4096, d.Render.CoordsOffset)
	if t.Render.FontSize <= 0 {
		out.Render.FontSize = d.Render.FontSize
	}
	if t.Render.HeadingBase <= 0 {
		out.Render.HeadingBase = d.Render.HeadingBase
	}
	if t.Render.HeadingHeight <= 0 {
		out.Render.HeadingHeight = d.Render.HeadingHeight
	}
	if t.Render.TextColor == "" {
		out.Render.TextColor = d.Render.TextColor
	}
	if t.Render.BorderColor == "" {
		out.Render.BorderColor = d.Render.BorderColor
	}
	if t.Render.HeadingColor == "" {
		out.Render.HeadingColor = d.Render.HeadingColor
	}

	out.Demo.TickRateHz = mathx.ClampWithDefault(t.Demo.TickRateHz, 1, 1000, d.Demo.TickRateHz)
	out.Demo.FrameRateHz = mathx.ClampWithDefault(t.Demo.FrameRateHz, 1, 1000, d.Demo.FrameRateHz)
	out.Demo.CanvasSize = mathx.ClampWithDefault(t.Demo.CanvasSize, 64, 8192, d.Demo.CanvasSize)
	if t.Demo.Speed <= 0 {
		out.Demo.Speed = d.Demo.Speed
	}
	return out
}
