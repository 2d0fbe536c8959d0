package portal

import (
	"fmt"
	"sort"
)

// Key identifies one end of a pair.
type Key struct {
	PairID    string
	Dimension string
}

func (k Key) String() string { return k.PairID + "@" + k.Dimension }

// Registry holds the live portal ends. Ends refer to each other only through
// it, so either end can go away without the other noticing until its next
// lookup.
type Registry struct {
	byKey map[Key]*Instance
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[Key]*Instance{}}
}

func (r *Registry) Add(p *Instance) error {
	if p == nil {
		return fmt.Errorf("nil portal")
	}
	k := p.Key()
	if _, ok := r.byKey[k]; ok {
		return fmt.Errorf("portal %s already registered", k)
	}
	r.byKey[k] = p
	p.registry = r
	return nil
}

// Remove unregisters p if it is still the live instance for its key.
func (r *Registry) Remove(p *Instance) {
	if p == nil {
		return
	}
	k := p.Key()
	if r.byKey[k] == p {
		delete(r.byKey, k)
	}
	if p.registry == r {
		p.registry = nil
	}
}

func (r *Registry) Lookup(k Key) *Instance {
	if r == nil {
		return nil
	}
	return r.byKey[k]
}

func (r *Registry) Len() int { return len(r.byKey) }

// All returns the live instances ordered by pair id, then dimension.
func (r *Registry) All() []*Instance {
	out := make([]*Instance, 0, len(r.byKey))
	for _, p := range r.byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key(), out[j].Key()
		if a.PairID != b.PairID {
			return a.PairID < b.PairID
		}
		return a.Dimension < b.Dimension
	})
	return out
}

// NewPair creates and registers both ends of a pair. head is the geometry as
// seen from the enterable end; for one-way pairs the other end is the tail.
func NewPair(r *Registry, pairID string, head Geometry, cfg Config, prof Profiler) (*Instance, *Instance, error) {
	if head.LocalDimension == head.RemoteDimension {
		return nil, nil, fmt.Errorf("pair %s: both ends in dimension %s", pairID, head.LocalDimension)
	}
	h := New(pairID, head, false, cfg, prof)
	t := New(pairID, head.ToRemote(), cfg.OneWay, cfg, prof)
	if err := r.Add(h); err != nil {
		return nil, nil, err
	}
	if err := r.Add(t); err != nil {
		r.Remove(h)
		return nil, nil, err
	}
	return h, t, nil
}
