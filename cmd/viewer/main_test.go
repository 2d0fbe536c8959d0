package main

import "testing"

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORTALVIEW_SCALE", "8")
	cfg, err := loadConfig([]string{"-width", "320", "-dimension", "NETHER"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Scale != 8 || cfg.Width != 320 || cfg.Height != 640 || cfg.Dimension != "NETHER" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if _, err := loadConfig([]string{"-scale", "1"}); err == nil {
		t.Fatalf("expected scale error")
	}
	if _, err := loadConfig([]string{"-height", "0"}); err == nil {
		t.Fatalf("expected size error")
	}
}
