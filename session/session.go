package session

import (
	"fmt"
	"time"

	"github.com/room4-2/serviceswarm/booking"
	"github.com/room4-2/serviceswarm/dialogue"
)

// Session is the dialogue state of one phone call
type Session struct {
	CallID    string         `json:"call_id"`
	State     dialogue.State `json:"state"`
	Mode      dialogue.Mode  `json:"mode"`
	Slots     booking.Slots  `json:"slots"`
	Reprompts int            `json:"reprompts"` // consecutive reprompts in State
	Turns     int            `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New creates the session for a call's first turn
func New(callID string, mode dialogue.Mode, now time.Time) *Session {
	if mode == "" {
		mode = dialogue.ModeMultiTurn
	}
	return &Session{
		CallID:    callID,
		State:     dialogue.StateWelcome,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the session to state to. Staying in the same state counts
// as a reprompt; moving on resets the count.
func (s *Session) Advance(to dialogue.State, now time.Time) error {
	if !s.State.CanMoveTo(to) {
		return fmt.Errorf("illegal transition %s -> %s", s.State, to)
	}
	if to == s.State {
		s.Reprompts++
	} else {
		s.Reprompts = 0
	}
	s.State = to
	s.Turns++
	s.UpdatedAt = now
	return nil
}
