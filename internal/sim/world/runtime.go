package world

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"voxelportals.ai/internal/persistence/snapshot"
	"voxelportals.ai/internal/sim/geom"
	"voxelportals.ai/internal/sim/portal"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world/terrain/store"
)

var (
	errStopped = errors.New("world stopped")

	ErrPlayerExists       = errors.New("player already joined")
	ErrDimensionNotLoaded = errors.New("dimension not loaded")
)

type JoinRequest struct {
	PlayerID  string
	Dimension string
	Pos       mgl64.Vec3
	Yaw       float64
	Pitch     float64
	// Resp, when set, receives the join result.
	Resp chan error
}

type MoveRequest struct {
	PlayerID string
	// Dimension is where the client thinks the player is. Moves sent before
	// the client saw a teleport carry the old dimension and are dropped.
	Dimension string
	Pos       mgl64.Vec3
	Yaw       float64
	Pitch     float64
}

type SetBlockRequest struct {
	Dimension string
	Pos       geom.Vec3i
	Block     uint16
}

type dimensionReq struct {
	id   string
	load bool
	resp chan error
}

type snapshotReq struct {
	resp chan snapshot.SnapshotV1
}

// Runtime owns the dimensions, players and portal registry. All state is
// mutated on the goroutine running Run, or by the caller of StepOnce when the
// loop is not running.
type Runtime struct {
	tun    tuning.Tuning
	pcfg   portal.Config
	logger *log.Logger
	prof   *Profiler

	tick atomic.Uint64

	dims map[string]*Dimension
	// Unloaded dimensions keep their chunks and the state of their portal ends.
	unloaded map[string]*Dimension
	parked   map[string][]portal.State

	registry *portal.Registry
	players  map[string]*Player

	sinks        []EventSink
	snapshotSink chan<- snapshot.SnapshotV1

	observers  map[string]*observerClient
	tickEvents []Event

	metaMu sync.RWMutex
	meta   runtimeMeta

	join          chan JoinRequest
	leave         chan string
	move          chan MoveRequest
	setBlock      chan SetBlockRequest
	dimension     chan dimensionReq
	snapshotReq   chan snapshotReq
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string

	stop     chan struct{}
	stopOnce sync.Once
}

// runtimeMeta is what HTTP handlers may read while the loop runs.
type runtimeMeta struct {
	loaded map[string]bool
	pairs  []string
}

// New builds a fresh runtime: every configured dimension is loaded and every
// configured pair is placed.
func New(tun tuning.Tuning, logger *log.Logger) (*Runtime, error) {
	if err := tun.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Runtime{
		tun:       tun,
		pcfg:      tun.PortalConfig(),
		logger:    logger,
		prof:      NewProfiler(),
		dims:      map[string]*Dimension{},
		unloaded:  map[string]*Dimension{},
		parked:    map[string][]portal.State{},
		registry:  portal.NewRegistry(),
		players:   map[string]*Player{},
		observers: map[string]*observerClient{},

		join:          make(chan JoinRequest, 64),
		leave:         make(chan string, 64),
		move:          make(chan MoveRequest, 1024),
		setBlock:      make(chan SetBlockRequest, 1024),
		dimension:     make(chan dimensionReq, 16),
		snapshotReq:   make(chan snapshotReq, 4),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	for _, spec := range tun.Dimensions {
		r.dims[spec.ID] = r.newDimension(spec.ID, spec.Unbounded, store.NewChunkStore(r.genFor(spec.ID, spec.MinY, spec.MaxY)))
	}
	for _, ps := range tun.Pairs {
		g, err := ps.Geometry()
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", ps.ID, err)
		}
		if _, _, err := portal.NewPair(r.registry, ps.ID, g, r.pcfg, r.prof); err != nil {
			return nil, err
		}
		r.clearFootprint(g.LocalDimension, g.LocalBlocks())
		r.clearFootprint(g.RemoteDimension, g.RemoteBlocks())
	}
	r.refreshMeta()
	return r, nil
}

func (r *Runtime) newDimension(id string, unbounded bool, cs *store.ChunkStore) *Dimension {
	return &Dimension{id: id, unbounded: unbounded, margin: r.tun.VerticalMargin, chunks: cs, rt: r}
}

func (r *Runtime) genFor(id string, minY, maxY int) store.Gen {
	gen := store.Gen{MinY: minY, MaxY: maxY, FloorY: minY - 1}
	if spec, ok := r.tun.DimensionSpecByID(id); ok && spec.FloorBlock != "" {
		floor, _ := r.tun.BlockID(spec.FloorBlock)
		gen.FloorY = spec.FloorY
		gen.Floor = floor
	}
	return gen
}

// clearFootprint carves configured portals out of generated terrain.
func (r *Runtime) clearFootprint(dim string, blocks []geom.Vec3i) {
	d := r.dims[dim]
	if d == nil {
		return
	}
	for _, b := range blocks {
		d.SetBlock(b, r.pcfg.Air)
	}
}

func (r *Runtime) refreshMeta() {
	m := runtimeMeta{loaded: map[string]bool{}}
	for id := range r.dims {
		m.loaded[id] = true
	}
	seen := map[string]bool{}
	for _, p := range r.registry.All() {
		if !seen[p.PairID()] {
			seen[p.PairID()] = true
			m.pairs = append(m.pairs, p.PairID())
		}
	}
	for _, states := range r.parked {
		for _, st := range states {
			if !seen[st.PairID] {
				seen[st.PairID] = true
				m.pairs = append(m.pairs, st.PairID)
			}
		}
	}
	sort.Strings(m.pairs)
	r.metaMu.Lock()
	r.meta = m
	r.metaMu.Unlock()
}

func (r *Runtime) SetEventSinks(sinks ...EventSink)              { r.sinks = sinks }
func (r *Runtime) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { r.snapshotSink = ch }
func (r *Runtime) Tuning() tuning.Tuning                         { return r.tun }
func (r *Runtime) PortalConfig() portal.Config                   { return r.pcfg }
func (r *Runtime) Profiler() *Profiler                           { return r.prof }
func (r *Runtime) Registry() *portal.Registry                    { return r.registry }
func (r *Runtime) CurrentTick() uint64                           { return r.tick.Load() }

func (r *Runtime) Join() chan<- JoinRequest                           { return r.join }
func (r *Runtime) Leave() chan<- string                               { return r.leave }
func (r *Runtime) Move() chan<- MoveRequest                           { return r.move }
func (r *Runtime) SetBlockCh() chan<- SetBlockRequest                 { return r.setBlock }
func (r *Runtime) ObserverJoin() chan<- ObserverJoinRequest           { return r.observerJoin }
func (r *Runtime) ObserverSubscribe() chan<- ObserverSubscribeRequest { return r.observerSub }
func (r *Runtime) ObserverLeave() chan<- string                       { return r.observerLeave }

// World resolves a loaded dimension. It satisfies portal.Worlds.
func (r *Runtime) World(dimension string) portal.World {
	d := r.dims[dimension]
	if d == nil {
		return nil
	}
	return d
}

// Dimension returns a loaded dimension or nil.
func (r *Runtime) Dimension(id string) *Dimension { return r.dims[id] }

// LoadedDimensions lists loaded dimension ids in order.
func (r *Runtime) LoadedDimensions() []string {
	out := make([]string, 0, len(r.dims))
	for id := range r.dims {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SpawnPoint resolves a dimension id, empty meaning the default one, to its
// configured spawn position.
func (r *Runtime) SpawnPoint(dimension string) (string, mgl64.Vec3, error) {
	if dimension == "" {
		dimension = r.tun.DefaultDimension
	}
	spec, ok := r.tun.DimensionSpecByID(dimension)
	if !ok {
		return "", mgl64.Vec3{}, fmt.Errorf("unknown dimension %q", dimension)
	}
	return spec.ID, mgl64.Vec3{spec.Spawn[0], spec.Spawn[1], spec.Spawn[2]}, nil
}

// Player returns a copy of a player's state.
func (r *Runtime) Player(id string) (PlayerInfo, bool) {
	p := r.players[id]
	if p == nil {
		return PlayerInfo{}, false
	}
	return p.info(), true
}

// Players lists players ordered by id.
func (r *Runtime) Players() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.sortedPlayers() {
		out = append(out, p.info())
	}
	return out
}

func (r *Runtime) sortedPlayers() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// AddPlayer places a new player. An empty dimension means the default one.
func (r *Runtime) AddPlayer(req JoinRequest) error {
	if req.PlayerID == "" {
		return fmt.Errorf("empty player id")
	}
	if _, ok := r.players[req.PlayerID]; ok {
		return fmt.Errorf("player %s: %w", req.PlayerID, ErrPlayerExists)
	}
	dim := req.Dimension
	if dim == "" {
		dim = r.tun.DefaultDimension
	}
	if r.dims[dim] == nil {
		return fmt.Errorf("dimension %s: %w", dim, ErrDimensionNotLoaded)
	}
	r.players[req.PlayerID] = &Player{
		id:    req.PlayerID,
		dim:   dim,
		pos:   req.Pos,
		prev:  req.Pos,
		yaw:   req.Yaw,
		pitch: req.Pitch,
		rt:    r,
	}
	r.logger.Printf("player %s joined %s at %.1f,%.1f,%.1f", req.PlayerID, dim, req.Pos[0], req.Pos[1], req.Pos[2])
	return nil
}

func (r *Runtime) RemovePlayer(id string) {
	if _, ok := r.players[id]; ok {
		delete(r.players, id)
		r.logger.Printf("player %s left", id)
	}
}

// MovePlayer sets where a player is now. Crossings are detected against the
// position at the end of the previous tick.
func (r *Runtime) MovePlayer(req MoveRequest) error {
	p := r.players[req.PlayerID]
	if p == nil {
		return fmt.Errorf("unknown player %s", req.PlayerID)
	}
	if req.Dimension != p.dim {
		r.logger.Printf("player %s: dropped move for %q, now in %s", req.PlayerID, req.Dimension, p.dim)
		return nil
	}
	p.pos = req.Pos
	p.yaw = req.Yaw
	p.pitch = req.Pitch
	return nil
}

func (r *Runtime) SetBlock(req SetBlockRequest) error {
	d := r.dims[req.Dimension]
	if d == nil {
		return fmt.Errorf("dimension %s: %w", req.Dimension, ErrDimensionNotLoaded)
	}
	if int(req.Block) >= len(r.tun.Blocks) {
		return fmt.Errorf("unknown block id %d", req.Block)
	}
	d.SetBlock(req.Pos, req.Block)
	return nil
}

// UnloadDimension parks a dimension with its portal ends. The other end of
// each affected pair keeps running and treats the missing end as absent.
func (r *Runtime) UnloadDimension(id string) error {
	d := r.dims[id]
	if d == nil {
		return fmt.Errorf("dimension %s: %w", id, ErrDimensionNotLoaded)
	}
	for _, p := range r.players {
		if p.dim == id {
			return fmt.Errorf("dimension %s has players", id)
		}
	}
	var states []portal.State
	for _, p := range r.registry.All() {
		if p.Geometry().LocalDimension != id {
			continue
		}
		states = append(states, p.State())
		r.registry.Remove(p)
	}
	delete(r.dims, id)
	r.unloaded[id] = d
	r.parked[id] = states
	r.refreshMeta()
	r.logger.Printf("dimension %s unloaded (%d portal ends parked)", id, len(states))
	return nil
}

func (r *Runtime) LoadDimension(id string) error {
	if r.dims[id] != nil {
		return nil
	}
	d := r.unloaded[id]
	if d == nil {
		return fmt.Errorf("unknown dimension %s", id)
	}
	for _, st := range r.parked[id] {
		if err := r.registry.Add(portal.Restore(st, r.pcfg, r.prof)); err != nil {
			return fmt.Errorf("restore portal %s: %w", st.PairID, err)
		}
	}
	delete(r.unloaded, id)
	delete(r.parked, id)
	r.dims[id] = d
	r.refreshMeta()
	r.logger.Printf("dimension %s loaded", id)
	return nil
}

// RequestDimension asks the running loop to load or unload a dimension.
func (r *Runtime) RequestDimension(id string, load bool) error {
	resp := make(chan error, 1)
	select {
	case r.dimension <- dimensionReq{id: id, load: load, resp: resp}:
	case <-r.stop:
		return errStopped
	}
	select {
	case err := <-resp:
		return err
	case <-r.stop:
		return errStopped
	}
}

// RequestSnapshot asks the running loop for a snapshot taken between ticks.
func (r *Runtime) RequestSnapshot() (snapshot.SnapshotV1, error) {
	resp := make(chan snapshot.SnapshotV1, 1)
	select {
	case r.snapshotReq <- snapshotReq{resp: resp}:
	case <-r.stop:
		return snapshot.SnapshotV1{}, errStopped
	}
	select {
	case snap := <-resp:
		return snap, nil
	case <-r.stop:
		return snapshot.SnapshotV1{}, errStopped
	}
}
