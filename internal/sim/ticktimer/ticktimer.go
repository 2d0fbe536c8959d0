package ticktimer

// Profiler receives the name of a timer's action for the duration of its run.
type Profiler interface {
	Begin(section string)
	End()
}

// TickTimer counts simulation ticks down from a fixed period. When it reaches
// zero the action fires once and the countdown restarts at the period.
type TickTimer struct {
	period    int
	remaining int
	profiler  Profiler
}

func New(period int, profiler Profiler) *TickTimer {
	if period < 1 {
		period = 1
	}
	return &TickTimer{period: period, remaining: period, profiler: profiler}
}

func (t *TickTimer) Period() int    { return t.period }
func (t *TickTimer) Remaining() int { return t.remaining }

// Tick advances the timer by one tick and reports whether the action ran.
func (t *TickTimer) Tick(name string, action func()) bool {
	t.remaining--
	if t.remaining > 0 {
		return false
	}
	t.remaining = t.period
	if t.profiler != nil {
		t.profiler.Begin(name)
		defer t.profiler.End()
	}
	if action != nil {
		action()
	}
	return true
}

// Reset restarts the countdown without firing.
func (t *TickTimer) Reset() { t.remaining = t.period }

// Restore sets the remaining ticks, e.g. when resuming from a snapshot.
// Out of range values are clamped to [1, period].
func (t *TickTimer) Restore(remaining int) {
	if remaining < 1 {
		remaining = 1
	}
	if remaining > t.period {
		remaining = t.period
	}
	t.remaining = remaining
}
