package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/amoyroud/audiodraft/internal/action"
)

// Coordinator enforces the single-active-session invariant: at most one
// session exists at a time, and opening a new one discards whatever the
// previous one was doing.
type Coordinator struct {
	newSession func(target action.TargetEmail, mode action.Type) *Session

	mu     sync.Mutex
	active *Session
}

// NewCoordinator creates a coordinator that builds sessions with the given
// factory.
func NewCoordinator(newSession func(target action.TargetEmail, mode action.Type) *Session) *Coordinator {
	return &Coordinator{newSession: newSession}
}

// Open creates a session for the target email, closing any previous session
// first. A mid-flight recording or dispatch on the old session is discarded,
// never completed in the background.
func (c *Coordinator) Open(target action.TargetEmail, mode action.Type) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		log.Debug().Str("email", c.active.Target().ID).Msg("superseding active session")
		c.active.Close()
	}
	c.active = c.newSession(target, mode)

	return c.active
}

// Active returns the current session, or nil.
func (c *Coordinator) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// CloseActive tears down the current session, if any.
func (c *Coordinator) CloseActive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.active.Close()
		c.active = nil
	}
}
