// Command viewer runs a portal world locally and draws it top-down, including
// the views through portals and the fade after a dimension change.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/hajimehoshi/ebiten/v2"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world"
)

type viewerConfig struct {
	TuningPath   string  `env:"PORTALVIEW_TUNING" envDefault:"./configs/tuning.yaml"`
	SnapshotPath string  `env:"PORTALVIEW_SNAPSHOT"`
	SaveDir      string  `env:"PORTALVIEW_SAVE_DIR"`
	Width        int     `env:"PORTALVIEW_WIDTH" envDefault:"960"`
	Height       int     `env:"PORTALVIEW_HEIGHT" envDefault:"640"`
	Scale        float64 `env:"PORTALVIEW_SCALE" envDefault:"16"`
	Dimension    string  `env:"PORTALVIEW_DIMENSION"`
}

func loadConfig(args []string) (viewerConfig, error) {
	var cfg viewerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "path to tuning.yaml")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "snapshot to start from (optional)")
	fs.StringVar(&cfg.SaveDir, "save", cfg.SaveDir, "write a snapshot into this directory on exit (optional)")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "window width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "window height")
	fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "pixels per block")
	fs.StringVar(&cfg.Dimension, "dimension", cfg.Dimension, "dimension to spawn in (default: tuning default)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("bad window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Scale < 2 {
		return cfg, fmt.Errorf("scale %.1f too small", cfg.Scale)
	}
	return cfg, nil
}

func main() {
	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	tun, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	rt, err := world.New(tun, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if cfg.SnapshotPath != "" {
		snap, err := snapshot.ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := rt.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("loaded %s at tick %d", filepath.Base(cfg.SnapshotPath), rt.CurrentTick())
	}

	const playerID = "viewer"
	if _, ok := rt.Player(playerID); !ok {
		dim, pos, err := rt.SpawnPoint(cfg.Dimension)
		if err != nil {
			logger.Fatalf("spawn: %v", err)
		}
		if err := rt.AddPlayer(world.JoinRequest{PlayerID: playerID, Dimension: dim, Pos: pos}); err != nil {
			logger.Fatalf("join: %v", err)
		}
	}

	g := newGame(rt, playerID, cfg.Width, cfg.Height, cfg.Scale, logger)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle("voxel portals")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(tun.TickRateHz)

	runErr := ebiten.RunGame(g)
	g.Close()
	if cfg.SaveDir != "" {
		snap := rt.ExportSnapshot()
		path := snapshot.Path(cfg.SaveDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("save: %v", err)
		} else {
			logger.Printf("saved %s", path)
		}
	}
	if runErr != nil {
		logger.Fatalf("run: %v", runErr)
	}
}
