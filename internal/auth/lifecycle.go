package auth

import (
	"fmt"
	"sync"
)

// State is a session-lifecycle state. The lifecycle replaces the ad hoc
// "is a recovery in progress" boolean: data fetching is only allowed in
// Authenticated, and password recovery suspends it even while a token
// is technically valid.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	PasswordRecovery
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case PasswordRecovery:
		return "password_recovery"
	}
	return "unknown"
}

var transitions = map[State][]State{
	Unauthenticated:  {Authenticating, PasswordRecovery},
	Authenticating:   {Authenticated, Unauthenticated},
	Authenticated:    {PasswordRecovery, Unauthenticated},
	PasswordRecovery: {Authenticated, Unauthenticated},
}

// Lifecycle tracks each user's session state. The zero state for an
// unknown user is Unauthenticated.
type Lifecycle struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewLifecycle creates an empty lifecycle tracker.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{states: make(map[string]State)}
}

// State returns the user's current state.
func (l *Lifecycle) State(userID string) State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.states[userID]
}

// Transition moves a user to a new state, rejecting moves the state
// machine does not define.
func (l *Lifecycle) Transition(userID string, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	from := l.states[userID]
	for _, allowed := range transitions[from] {
		if allowed == to {
			if to == Unauthenticated {
				delete(l.states, userID)
			} else {
				l.states[userID] = to
			}
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", from, to)
}

// Authenticated reports whether fetching and mutating data is allowed
// for the user. Satisfies the attendance reconciler's session gate.
func (l *Lifecycle) Authenticated(userID string) bool {
	return l.State(userID) == Authenticated
}
