package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"voxelportals.ai/internal/persistence/archive"
	"voxelportals.ai/internal/persistence/indexdb"
	persistlog "voxelportals.ai/internal/persistence/log"
	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world"
	"voxelportals.ai/internal/transport/observer"
	"voxelportals.ai/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[portald] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.TuningPath)
		tune = tuning.Defaults()
		tune.Normalize()
	}

	rt, err := world.New(tune, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	snapshotToLoad := cfg.SnapshotPath
	if snapshotToLoad == "" && cfg.LoadLatest {
		if snapshotToLoad, err = snapshot.Latest(cfg.DataDir); err != nil {
			logger.Fatalf("find snapshot: %v", err)
		}
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if err := rt.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), rt.CurrentTick())
	}

	// Optional read-model index; the simulation does not depend on it.
	var idx *indexdb.SQLiteIndex
	if !cfg.DisableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "portals.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index: upsert tuning: %v", err)
		}
	}

	eventLog := persistlog.NewEventLogger(cfg.DataDir)
	defer eventLog.Close()
	if idx != nil {
		rt.SetEventSinks(eventLog, idx)
	} else {
		rt.SetEventSinks(eventLog)
	}

	ctx, cancel := signalContext()
	defer cancel()

	snaps := &snapshotWriter{
		dataDir: cfg.DataDir,
		idx:     idx,
		policy:  archive.Policy{Dir: cfg.DataDir, Keep: cfg.SnapshotKeep, ArchiveEveryTicks: cfg.ArchiveEveryTicks},
		logger:  logger,
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	rt.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				snaps.write(snap)
			}
		}
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(rt, idx))

	obsSrv := observer.NewServer(rt, logger)
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observe", obsSrv.WSHandler())
	mux.HandleFunc("/v1/play", ws.NewServer(rt, logger).Handler())

	if cfg.EnableAdminHTTP {
		registerAdmin(mux, adminDeps{rt: rt, idx: idx, snaps: snaps, logger: logger})
	} else {
		logger.Printf("admin endpoints disabled (PORTALD_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	// The loop has exited, so the world can be read directly.
	<-worldDone
	<-snapDone
	snaps.write(rt.ExportSnapshot())
	if idx != nil {
		ctx3, cancel3 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel3()
		if err := idx.Sync(ctx3); err != nil {
			logger.Printf("index sync: %v", err)
		}
	}
}

type snapshotWriter struct {
	dataDir string
	idx     *indexdb.SQLiteIndex
	policy  archive.Policy
	logger  *log.Logger
}

// write stores snap, records it in the index and applies the retention
// policy. It returns the written path, or "" on failure.
func (w *snapshotWriter) write(snap snapshot.SnapshotV1) string {
	path := snapshot.Path(w.dataDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		w.logger.Printf("snapshot write: %v", err)
		return ""
	}
	w.logger.Printf("snapshot written tick=%d portals=%d players=%d", snap.Header.Tick, len(snap.Portals), len(snap.Players))
	if w.idx != nil {
		w.idx.RecordSnapshot(path, snap)
	}
	archived, err := w.policy.Apply(path, snap)
	if err != nil {
		w.logger.Printf("snapshot retention: %v", err)
	}
	if archived != "" {
		w.logger.Printf("snapshot archived: %s", archived)
	}
	return path
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
