package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the circuit rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyTrials is returned when every half-open trial slot is taken.
	ErrTooManyTrials = errors.New("circuit breaker trial in progress")
)

// State is the circuit state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero fields take defaults.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default 5.
	FailureThreshold int
	// CoolDown is how long the circuit stays open. Default 30s.
	CoolDown time.Duration
	// HalfOpenTrials is how many successful trial calls close the circuit.
	// Default 1.
	HalfOpenTrials int
	// IsFailure reports whether err counts against the circuit. Default:
	// every non-nil error except context cancellation.
	IsFailure func(err error) bool
	// OnStateChange is called, with the breaker lock held, on every
	// transition.
	OnStateChange func(name string, from, to State)

	now func() time.Time
}

// Snapshot describes the breaker for inspection.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	TotalFailures       int
	TotalSuccesses      int
	OpenedAt            time.Time
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures int // consecutive failures while closed
	trials   int // trial calls admitted while half-open
	passed   int // trial calls that succeeded while half-open
	total    struct{ failures, successes int }
	openedAt time.Time
	epoch    uint64
}

// New creates a closed breaker.
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.CoolDown <= 0 {
		settings.CoolDown = 30 * time.Second
	}
	if settings.HalfOpenTrials <= 0 {
		settings.HalfOpenTrials = 1
	}
	if settings.IsFailure == nil {
		settings.IsFailure = defaultIsFailure
	}
	if settings.now == nil {
		settings.now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Snapshot returns the breaker counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:               b.currentState(),
		ConsecutiveFailures: b.failures,
		TotalFailures:       b.total.failures,
		TotalSuccesses:      b.total.successes,
		OpenedAt:            b.openedAt,
	}
}

// Do runs fn when the circuit admits it.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	epoch, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.record(epoch, errors.New("panic"))
			panic(r)
		}
	}()

	err = fn(ctx)
	b.record(epoch, err)
	return err
}

// Call runs fn through b and returns its value.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if b.trials >= b.settings.HalfOpenTrials {
			return 0, ErrTooManyTrials
		}
		b.trials++
	}
	return b.epoch, nil
}

func (b *Breaker) record(epoch uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if epoch != b.epoch {
		// The call started before the last transition.
		return
	}

	if !b.settings.IsFailure(err) {
		b.total.successes++
		switch state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.passed++
			if b.passed >= b.settings.HalfOpenTrials {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.total.failures++
	switch state {
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// currentState must be called with mu held.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.settings.now().Sub(b.openedAt) >= b.settings.CoolDown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.epoch++
	b.failures, b.trials, b.passed = 0, 0, 0
	if to == StateOpen {
		b.openedAt = b.settings.now()
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
