package statemachine

import (
	"fmt"
	"sync"
)

// StateFn is the body of a single named state following Rob Pike's pattern.
// It performs the state's work against the entity and returns the name of the
// next state, or Terminal to end the machine.
type StateFn[T any] func(*T) string

// Terminal is the next-state name that ends the machine.
const Terminal = ""

// StateMachine drives an entity through a set of named states. Every
// transition is by name, so an unknown target surfaces as an error instead of
// an off-by-one in round-index arithmetic.
type StateMachine[T any] struct {
	mu      sync.RWMutex
	entity  *T
	states  map[string]StateFn[T]
	current string
}

// New creates a state machine for entity starting at the named initial state.
// States are added with Register before the first Step.
func New[T any](entity *T, initial string) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		states:  make(map[string]StateFn[T]),
		current: initial,
	}
}

// Register binds a state name to its function. Re-registering a name replaces
// the previous function.
func (sm *StateMachine[T]) Register(name string, fn StateFn[T]) {
	sm.mu.Lock()
	sm.states[name] = fn
	sm.mu.Unlock()
}

// Current returns the name of the current state, or Terminal if the machine
// has ended.
func (sm *StateMachine[T]) Current() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Done reports whether the machine has reached the terminal state.
func (sm *StateMachine[T]) Done() bool {
	return sm.Current() == Terminal
}

// Step executes the current state's function once and transitions to the
// state it names. It fails if the machine already terminated or if the
// current or returned state name is unregistered.
func (sm *StateMachine[T]) Step() error {
	sm.mu.Lock()
	name := sm.current
	fn, ok := sm.states[name]
	sm.mu.Unlock()

	if name == Terminal {
		return fmt.Errorf("state machine already terminated")
	}
	if !ok {
		return fmt.Errorf("unknown state %q", name)
	}

	next := fn(sm.entity)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if next != Terminal {
		if _, ok := sm.states[next]; !ok {
			return fmt.Errorf("state %q returned unknown state %q", name, next)
		}
	}
	sm.current = next
	return nil
}

// Set forces the machine into the named state without executing anything.
// Used for externally driven transitions (a fold, a restore from snapshot).
func (sm *StateMachine[T]) Set(name string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if name != Terminal {
		if _, ok := sm.states[name]; !ok {
			return fmt.Errorf("unknown state %q", name)
		}
	}
	sm.current = name
	return nil
}
