package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"voxelportals.ai/internal/persistence/indexdb"
	"voxelportals.ai/internal/sim/world"
)

type adminDeps struct {
	rt     *world.Runtime
	idx    *indexdb.SQLiteIndex
	snaps  *snapshotWriter
	logger *log.Logger
}

// registerAdmin mounts the local-only admin endpoints.
func registerAdmin(mux *http.ServeMux, d adminDeps) {
	mux.HandleFunc("GET /admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		boot := d.rt.Bootstrap()
		resp := struct {
			Tick       uint64   `json:"tick"`
			Dimensions []string `json:"loaded_dimensions"`
			Pairs      []string `json:"pairs"`
		}{Tick: boot.Tick, Pairs: boot.Pairs}
		for _, dim := range boot.Dimensions {
			if dim.Loaded {
				resp.Dimensions = append(resp.Dimensions, dim.ID)
			}
		}
		writeJSON(rw, http.StatusOK, resp)
	}))

	mux.HandleFunc("POST /admin/v1/snapshot", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		snap, err := d.rt.RequestSnapshot()
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		path := d.snaps.write(snap)
		if path == "" {
			writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "tick": snap.Header.Tick, "error": "write failed"})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": snap.Header.Tick, "path": path})
	}))

	dimension := func(load bool) http.HandlerFunc {
		return loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.PathValue("id"))
			if err := d.rt.RequestDimension(id, load); err != nil {
				writeJSON(rw, http.StatusConflict, map[string]any{"ok": false, "dimension": id, "error": err.Error()})
				return
			}
			d.logger.Printf("admin: dimension %s loaded=%v", id, load)
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "dimension": id, "loaded": load})
		})
	}
	mux.HandleFunc("POST /admin/v1/dimensions/{id}/load", dimension(true))
	mux.HandleFunc("POST /admin/v1/dimensions/{id}/unload", dimension(false))

	mux.HandleFunc("GET /admin/v1/pairs/{id}/history", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		if d.idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		events, err := d.idx.PairHistory(r.Context(), r.PathValue("id"), r.URL.Query().Get("type"), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"pair_id": r.PathValue("id"), "events": events})
	}))
}

func metricsHandler(rt *world.Runtime, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP portald_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE portald_world_tick gauge\n")
		fmt.Fprintf(rw, "portald_world_tick %d\n", rt.CurrentTick())

		boot := rt.Bootstrap()
		fmt.Fprintf(rw, "# HELP portald_portal_pairs Known portal pairs.\n")
		fmt.Fprintf(rw, "# TYPE portald_portal_pairs gauge\n")
		fmt.Fprintf(rw, "portald_portal_pairs %d\n", len(boot.Pairs))

		fmt.Fprintf(rw, "# HELP portald_dimension_loaded Whether a dimension is loaded.\n")
		fmt.Fprintf(rw, "# TYPE portald_dimension_loaded gauge\n")
		for _, dim := range boot.Dimensions {
			loaded := 0
			if dim.Loaded {
				loaded = 1
			}
			fmt.Fprintf(rw, "portald_dimension_loaded{dimension=%q} %d\n", dim.ID, loaded)
		}

		fmt.Fprintf(rw, "# HELP portald_profiler_sections Completed profiler sections.\n")
		fmt.Fprintf(rw, "# TYPE portald_profiler_sections counter\n")
		counts := rt.Profiler().Counts()
		names := make([]string, 0, len(counts))
		for k := range counts {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(rw, "portald_profiler_sections{section=%q} %d\n", k, counts[k])
		}

		if idx != nil {
			fmt.Fprintf(rw, "# HELP portald_index_dropped Events dropped by the index writer.\n")
			fmt.Fprintf(rw, "# TYPE portald_index_dropped counter\n")
			fmt.Fprintf(rw, "portald_index_dropped %d\n", idx.Dropped())
		}
	}
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}
