package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("map:\n  radius_tiles: 5\nrender:\n  border_color: \"#112233\"\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.Map.RadiusTiles != 5 {
		t.Fatalf("radius=%d want 5", tu.Map.RadiusTiles)
	}
	if tu.Map.CeilingProbeOffset != 3 {
		t.Fatalf("probe offset=%d want default 3", tu.Map.CeilingProbeOffset)
	}
	if tu.Render.BorderColor != "#112233" || tu.Render.TextColor != "#FFFFFF" {
		t.Fatalf("unexpected colors: %+v", tu.Render)
	}
	if tu.Render.CircleRadius != 40 {
		t.Fatalf("circle radius=%d want 40", tu.Render.CircleRadius)
	}
}

func TestLoad_RepoTuning(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.Map.RadiusTiles != 3 {
		t.Fatalf("radius=%d want 3", tu.Map.RadiusTiles)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("map: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNormalize_ClampsToDefaults(t *testing.T) {
	tu := Defaults()
	tu.Map.RadiusTiles = 0
	tu.Map.MaxTilesPerRebuild = -4
	tu.Render.FontSize = -1
	tu.Demo.Speed = 0
	n := tu.Normalize()
	d := Defaults()
	if n.Map.RadiusTiles != d.Map.RadiusTiles || n.Map.MaxTilesPerRebuild != 0 {
		t.Fatalf("map not normalized: %+v", n.Map)
	}
	if n.Render.FontSize != d.Render.FontSize || n.Demo.Speed != d.Demo.Speed {
		t.Fatalf("render/demo not normalized: %+v %+v", n.Render, n.Demo)
	}
}
