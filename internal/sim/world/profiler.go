package world

import "sync"

// Profiler counts how often each named tick section ran. It satisfies
// ticktimer.Profiler.
type Profiler struct {
	mu     sync.Mutex
	counts map[string]int
	open   []string
}

func NewProfiler() *Profiler {
	return &Profiler{counts: map[string]int{}}
}

func (p *Profiler) Begin(section string) {
	p.mu.Lock()
	p.counts[section]++
	p.open = append(p.open, section)
	p.mu.Unlock()
}

func (p *Profiler) End() {
	p.mu.Lock()
	if n := len(p.open); n > 0 {
		p.open = p.open[:n-1]
	}
	p.mu.Unlock()
}

// Counts returns a copy of the section counters.
func (p *Profiler) Counts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

// Open reports the sections currently running, outermost first.
func (p *Profiler) Open() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.open...)
}
