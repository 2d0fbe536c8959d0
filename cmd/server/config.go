package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// serverConfig is read from the environment first; flags override it.
type serverConfig struct {
	Addr       string `env:"PORTALD_ADDR" envDefault:":8080"`
	DataDir    string `env:"PORTALD_DATA" envDefault:"./data"`
	ConfigDir  string `env:"PORTALD_CONFIGS" envDefault:"./configs"`
	TuningPath string `env:"PORTALD_TUNING"`

	SnapshotPath string `env:"PORTALD_SNAPSHOT"`
	LoadLatest   bool   `env:"PORTALD_LOAD_LATEST" envDefault:"true"`
	DisableDB    bool   `env:"PORTALD_DISABLE_DB"`

	SnapshotKeep      int    `env:"PORTALD_SNAPSHOT_KEEP" envDefault:"20"`
	ArchiveEveryTicks uint64 `env:"PORTALD_ARCHIVE_EVERY_TICKS"`

	EnableAdminHTTP bool `env:"PORTALD_ENABLE_ADMIN_HTTP" envDefault:"true"`
	EnablePprofHTTP bool `env:"PORTALD_ENABLE_PPROF_HTTP"`
}

func loadConfig(args []string) (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory")
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "path to snapshot to load (optional)")
	fs.BoolVar(&cfg.LoadLatest, "load_latest_snapshot", cfg.LoadLatest, "load latest snapshot from data dir if present (when -snapshot is empty)")
	fs.BoolVar(&cfg.DisableDB, "disable_db", cfg.DisableDB, "disable the sqlite event index")
	fs.IntVar(&cfg.SnapshotKeep, "snapshot_keep", cfg.SnapshotKeep, "snapshots kept in the data dir (0 keeps all)")
	fs.Uint64Var(&cfg.ArchiveEveryTicks, "archive_every_ticks", cfg.ArchiveEveryTicks, "archive snapshots taken at multiples of this tick (0 disables)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.TuningPath = strings.TrimSpace(cfg.TuningPath)
	if cfg.TuningPath == "" {
		cfg.TuningPath = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	return cfg, nil
}
