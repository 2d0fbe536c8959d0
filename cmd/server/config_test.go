package main

import (
	"path/filepath"
	"testing"
)

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	t.Setenv("PORTALD_ADDR", ":9090")
	t.Setenv("PORTALD_CONFIGS", "/etc/portald")
	t.Setenv("PORTALD_DISABLE_DB", "true")

	cfg, err := loadConfig([]string{"-data", "/tmp/portald"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.DataDir != "/tmp/portald" || !cfg.DisableDB {
		t.Fatalf("cfg=%+v", cfg)
	}
	if want := filepath.Join("/etc/portald", "tuning.yaml"); cfg.TuningPath != want {
		t.Fatalf("TuningPath=%q want %q", cfg.TuningPath, want)
	}
	if !cfg.LoadLatest || !cfg.EnableAdminHTTP || cfg.EnablePprofHTTP {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	cfg, err = loadConfig([]string{"-addr", " :7070 ", "-tuning", "x.yaml", "-load_latest_snapshot=false"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.TuningPath != "x.yaml" || cfg.LoadLatest {
		t.Fatalf("flag overrides: %+v", cfg)
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("PORTALD_LOAD_LATEST", "maybe")
	if _, err := loadConfig(nil); err == nil {
		t.Fatalf("expected env parse error")
	}
}

func TestLoadConfig_UnknownFlag(t *testing.T) {
	if _, err := loadConfig([]string{"-nope"}); err == nil {
		t.Fatalf("expected flag error")
	}
}
