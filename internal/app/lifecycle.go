package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

// State represents the pull loop state.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateProcessing
	StateDraining
	StateStopped
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaiting:
		return "Waiting"
	case StateProcessing:
		return "Processing"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// transitions lists the allowed target states for each state.
var transitions = map[State][]State{
	StateIdle:       {StateWaiting, StateFailed},
	StateWaiting:    {StateProcessing, StateDraining, StateFailed},
	StateProcessing: {StateWaiting, StateFailed},
	StateDraining:   {StateStopped, StateFailed},
}

// EventEmitter is called when the pull loop state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle tracks the state of one pull loop invocation.
// The handler goroutine and the waiting goroutine both report through it.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	logger       ports.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateIdle.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState.
// Returns ErrInvalidTransition if newState is not reachable from the current state.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !canTransition(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, oldState, newState)
	}
	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
	return nil
}

// Done returns true once the loop has stopped or failed.
func (l *Lifecycle) Done() bool {
	s := l.State()
	return s == StateStopped || s == StateFailed
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
