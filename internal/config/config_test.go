package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"horizon": "24h",
		"top_k": 5,
		"sigma_model": "anisotropic_rtn"
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.GetHorizon(); got != 24*time.Hour {
		t.Errorf("horizon = %v", got)
	}
	if got := cfg.GetTopK(); got != 5 {
		t.Errorf("top_k = %d", got)
	}
	if got := cfg.GetSigmaModel(); got != "anisotropic_rtn" {
		t.Errorf("sigma_model = %q", got)
	}
	// Untouched fields fall back.
	if got := cfg.GetCoarseStep(); got != 10*time.Minute {
		t.Errorf("default coarse step = %v", got)
	}
	if got := cfg.GetPcThreshold(); got != 1e-5 {
		t.Errorf("default pc threshold = %v", got)
	}
	if got := cfg.GetVoxelEdgeM(); got != 50e3 {
		t.Errorf("default voxel edge = %v", got)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad duration", `{"horizon": "yesterday"}`},
		{"bad start", `{"start_utc": "March 1"}`},
		{"bad model", `{"sigma_model": "spherical-cow"}`},
		{"bad axes", `{"payload_sigma_rtn_m": [1, 2]}`},
		{"bad topk", `{"top_k": 0}`},
		{"bad radius", `{"hard_body_radius_m": -5}`},
		{"bad burn offset", `{"burn_offsets": ["12h", "soon"]}`},
	}
	for _, c := range cases {
		path := writeConfig(t, c.body)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: accepted %s", c.name, c.body)
		}
	}
}

func TestLoad_RejectsNonJSONPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("non-.json path accepted")
	}
}

func TestGetStart_DefaultsToTruncatedNow(t *testing.T) {
	cfg := Empty()
	now := time.Date(2026, 3, 1, 10, 30, 45, 987654321, time.UTC)
	if got := cfg.GetStart(now); !got.Equal(now.Truncate(time.Second)) {
		t.Errorf("start = %v", got)
	}

	s := "2026-03-02T00:00:00Z"
	cfg.StartUTC = &s
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := cfg.GetStart(now); !got.Equal(want) {
		t.Errorf("explicit start = %v, want %v", got, want)
	}
}

func TestGetBurnOffsets(t *testing.T) {
	cfg := Empty()
	if got := cfg.GetBurnOffsets(); len(got) != 4 || got[0] != 24*time.Hour || got[3] != 2*time.Hour {
		t.Errorf("default offsets = %v", got)
	}
	cfg.BurnOffsets = []string{"8h", "1h"}
	if got := cfg.GetBurnOffsets(); len(got) != 2 || got[0] != 8*time.Hour {
		t.Errorf("explicit offsets = %v", got)
	}
}
