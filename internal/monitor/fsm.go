package monitor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = fmt.Errorf("invalid state transition")
)

type State string

const (
	StateInit         State = "init"
	StateFetchSpecial State = "fetch_special"
	StateFetchGeneric State = "fetch_generic"
	StateFinalize     State = "finalize"
	StateDone         State = "done"
	StateError        State = "error"
)

// FSM tracks the phases of one run. Special providers are always fetched
// before the generic batches, and finalize runs exactly once.
type FSM struct {
	mu          sync.Mutex
	Transitions map[State]map[State]struct{}

	current State
	logger  *zap.Logger
}

type FSMOption func(*FSM)

func FSMWithLogger(logger *zap.Logger) FSMOption {
	return func(f *FSM) {
		f.logger = logger
	}
}

func NewFSM(opts ...FSMOption) *FSM {
	f := &FSM{
		current: StateInit,
		logger:  zap.NewNop(),

		Transitions: map[State]map[State]struct{}{
			StateInit: {
				StateFetchSpecial: {},
				StateFinalize:     {}, // empty provider list
				StateError:        {},
			},
			StateFetchSpecial: {
				StateFetchGeneric: {},
				StateFinalize:     {}, // no generic providers left
				StateError:        {},
			},
			StateFetchGeneric: {
				StateFinalize: {},
				StateError:    {},
			},
			StateFinalize: {
				StateDone:  {},
				StateError: {},
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FSM) Current() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FSM) canTransition(to State) bool {
	if _, ok := f.Transitions[f.current][to]; ok {
		return true
	}
	return false
}

func (f *FSM) Transition(to State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.canTransition(to) {
		f.logger.Error("invalid state transition",
			zap.String("from", string(f.current)),
			zap.String("to", string(to)),
		)
		return ErrInvalidTransition
	}
	previous := f.current
	f.current = to

	f.logger.Debug("state transitioned",
		zap.String("state", string(f.current)),
		zap.String("from", string(previous)),
	)
	return nil
}
