package session

import (
	"context"

	"github.com/amoyroud/audiodraft/internal/action"
)

// Key is a global keyboard input routed to the active session.
type Key string

const (
	KeySpace Key = "space"
	KeyEnter Key = "enter"
	KeyLeft  Key = "left"
	KeyRight Key = "right"
)

// HandleKey applies the global keyboard contract to the session. Keys are
// ignored while the user is typing in an editable field; the caller reports
// that via inEditableField. The return value says whether the key was
// consumed.
//
// Space and Enter are equivalent: for record-based modes they toggle the
// recording, otherwise they dispatch the current action. Right cycles forward
// through the action modes and wraps. Left cycles backward; at the first mode
// it signals session close instead of wrapping.
func (s *Session) HandleKey(ctx context.Context, key Key, inEditableField bool) bool {
	if inEditableField {
		return false
	}

	switch key {
	case KeySpace, KeyEnter:
		return s.handleActivate(ctx)
	case KeyRight:
		return s.cycleMode(1)
	case KeyLeft:
		return s.cycleMode(-1)
	}

	return false
}

func (s *Session) handleActivate(ctx context.Context) bool {
	mode := s.Mode()

	if mode.NeedsRecording() {
		switch s.State() {
		case StateRecording:
			_ = s.Stop(ctx)
		case StateIdle:
			_ = s.Start(ctx)
		case StateReviewing:
			s.Send(ctx)
		default:
			return false
		}
		return true
	}

	switch s.State() {
	case StateIdle, StateReviewing:
		s.Dispatch(ctx)
		return true
	}

	return false
}

func (s *Session) cycleMode(step int) bool {
	current := s.Mode()

	idx := -1
	for i, t := range action.CycleOrder {
		if t == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Modes outside the cycle (ai-draft is reached through the UI,
		// not the arrows) fall back to the cycle start.
		idx = 0
		if step < 0 {
			return false
		}
		return s.SetMode(action.CycleOrder[idx]) == nil
	}

	next := idx + step
	if next < 0 {
		if s.onClose != nil {
			s.onClose()
		}
		return true
	}
	next %= len(action.CycleOrder)

	return s.SetMode(action.CycleOrder[next]) == nil
}
