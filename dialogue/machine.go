package dialogue

import (
	"fmt"

	"github.com/room4-2/serviceswarm/booking"
)

// Machine decides the next state and directive for a turn. It is pure and
// safe for concurrent use.
type Machine struct {
	// MaxReprompts is how many times one question is re-asked before the
	// call is handed to a human. Zero means re-ask forever.
	MaxReprompts int
}

// NewMachine creates a Machine with the given reprompt limit
func NewMachine(maxReprompts int) Machine {
	return Machine{MaxReprompts: maxReprompts}
}

// Start answers a new call
func (m Machine) Start(mode Mode) (State, Directive) {
	if mode == ModeSingleShot {
		return StateAwaitingIntent, Directive{
			Action: ActionRecord,
			Say:    msgGreeting,
			Prompt: msgRecordRequest,
			Next:   NextTurn(StepRequest),
		}
	}
	return StateAwaitingIntent, gather(msgGreeting, msgAskRequest, StepRequest)
}

// Next applies the slots gathered so far to state. reprompts is how many
// times the current state has already been re-asked.
func (m Machine) Next(state State, slots booking.Slots, reprompts int) (State, Directive) {
	switch state {
	case StateWelcome:
		return m.Start(ModeMultiTurn)

	case StateAwaitingIntent:
		// Intent wins over any slots that came along with it
		if !slots.IsBooking() {
			return StateDeferred, hangup(msgFollowUp)
		}
		return m.fromBooking(slots, msgBooked)

	case StateAwaitingDate:
		if !slots.IsBooking() {
			return StateDeferred, hangup(msgFollowUp)
		}
		if !slots.HasDate() {
			return m.Reprompt(state, reprompts)
		}
		// A time heard before the date is asked for again
		return StateAwaitingTime, gather("", fmt.Sprintf(msgAskTimeAgain, slots.Date), StepTime)

	case StateAwaitingTime:
		if !slots.IsBooking() {
			return StateDeferred, hangup(msgFollowUp)
		}
		if !slots.HasTime() {
			return m.Reprompt(state, reprompts)
		}
		if !slots.HasDate() {
			// Unreachable through the graph; never confirm half a booking
			return StateDeferred, hangup(msgHandoff)
		}
		return StateConfirmed, hangup(fmt.Sprintf(msgScheduled, slots.Date, slots.Time))

	case StateConfirmed, StateDeferred:
		return state, hangup(msgFollowUp)

	default:
		return StateDeferred, Apology()
	}
}

func (m Machine) fromBooking(slots booking.Slots, confirm string) (State, Directive) {
	switch {
	case !slots.HasDate():
		return StateAwaitingDate, gather("", msgAskDate, StepDate)
	case !slots.HasTime():
		return StateAwaitingTime, gather("", fmt.Sprintf(msgAskTime, slots.Date), StepTime)
	default:
		return StateConfirmed, hangup(fmt.Sprintf(confirm, slots.Date, slots.Time))
	}
}

// Reprompt re-asks the question state is waiting on, or hands the call off
// once the reprompt limit is used up
func (m Machine) Reprompt(state State, reprompts int) (State, Directive) {
	if state.Terminal() || state == StateWelcome || !state.Valid() {
		return m.Next(state, booking.Slots{}, reprompts)
	}
	if m.MaxReprompts > 0 && reprompts >= m.MaxReprompts {
		return StateDeferred, hangup(msgHandoff)
	}

	switch state {
	case StateAwaitingDate:
		return state, gather(msgRepromptDate, msgSayDate, StepDate)
	case StateAwaitingTime:
		return state, gather(msgRepromptTime, msgSayTime, StepTime)
	default:
		return state, gather(msgRepromptRequest, msgAskRequest, StepRequest)
	}
}
