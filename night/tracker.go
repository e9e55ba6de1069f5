package night

import (
	"sync"
	"time"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/model"
)

// Tracker states.
type State int

const (
	StateNoActiveNight State = iota
	StateActive
	StateEnding
	StateEnded // terminal; a new night gets a fresh Tracker
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	default:
		return "no_active_night"
	}
}

// Tracker is the active-night state machine, decoupled from any transport
// or UI. It owns a 1-second tick whose elapsed time is always recomputed
// from the night's start time, never accumulated, so a paused or suspended
// consumer can never drift from wall-clock truth.
type Tracker struct {
	mu     sync.Mutex
	state  State
	night  *model.Night
	stopCh chan struct{}

	onTick func(elapsed time.Duration)
	now    func() time.Time // overridable in tests
}

// NewTracker creates a Tracker in NoActiveNight. onTick may be nil.
func NewTracker(onTick func(elapsed time.Duration)) *Tracker {
	return &Tracker{
		state:  StateNoActiveNight,
		onTick: onTick,
		now:    time.Now,
	}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Night returns the tracked night, or nil.
func (t *Tracker) Night() *model.Night {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.night
}

// Begin attaches a started night and moves to Active, starting the tick.
// Attaching is also how an existing active night is resumed after restart.
func (t *Tracker) Begin(n *model.Night) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNoActiveNight {
		return apperr.Conflictf("tracker already %s", t.state)
	}
	t.night = n
	t.state = StateActive
	t.stopCh = make(chan struct{})
	go t.run(t.stopCh)
	return nil
}

// Elapsed recomputes the active duration from the start time.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.night == nil {
		return 0
	}
	if t.night.EndedAt != nil {
		return t.night.EndedAt.Sub(t.night.StartedAt)
	}
	return t.now().Sub(t.night.StartedAt)
}

// End moves Active → Ending → Ended and cancels the tick. The ended night
// snapshot (as persisted by the service) is attached for final display.
func (t *Tracker) End(ended *model.Night) error {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return apperr.Conflictf("tracker is %s, not active", t.state)
	}
	t.state = StateEnding
	stop := t.stopCh
	t.mu.Unlock()

	close(stop)

	t.mu.Lock()
	t.night = ended
	t.state = StateEnded
	t.mu.Unlock()
	return nil
}

// Stop cancels the tick without ending the night (consumer teardown while
// the night stays active server-side).
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateActive && t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
		t.state = StateNoActiveNight
		t.night = nil
	}
}

func (t *Tracker) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if t.onTick != nil {
				t.onTick(t.Elapsed())
			}
		case <-stop:
			return
		}
	}
}
