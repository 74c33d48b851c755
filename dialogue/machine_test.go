package dialogue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/room4-2/serviceswarm/booking"
)

func slots(intent booking.Intent, date, tm string) booking.Slots {
	return booking.Slots{Intent: intent, Date: date, Time: tm}
}

func TestNext_TransitionTable(t *testing.T) {
	m := NewMachine(3)
	cases := []struct {
		name   string
		state  State
		slots  booking.Slots
		want   State
		action Action
		next   string
	}{
		{"welcome", StateWelcome, booking.Slots{}, StateAwaitingIntent, ActionGather, "/voice/turn?step=request"},
		{"intent other", StateAwaitingIntent, slots(booking.IntentOther, "", ""), StateDeferred, ActionHangup, ""},
		{"intent unknown", StateAwaitingIntent, booking.Slots{}, StateDeferred, ActionHangup, ""},
		{"booking no date", StateAwaitingIntent, slots(booking.IntentBooking, "", ""), StateAwaitingDate, ActionGather, "/voice/turn?step=date"},
		{"booking no date with time", StateAwaitingIntent, slots(booking.IntentBooking, "", "03:00 PM"), StateAwaitingDate, ActionGather, "/voice/turn?step=date"},
		{"booking no time", StateAwaitingIntent, slots(booking.IntentBooking, "2025-06-17", ""), StateAwaitingTime, ActionGather, "/voice/turn?step=time"},
		{"booking complete", StateAwaitingIntent, slots(booking.IntentBooking, "2025-06-17", "03:00 PM"), StateConfirmed, ActionHangup, ""},
		{"date missing", StateAwaitingDate, slots(booking.IntentBooking, "", ""), StateAwaitingDate, ActionGather, "/voice/turn?step=date"},
		{"date given", StateAwaitingDate, slots(booking.IntentBooking, "2025-06-17", ""), StateAwaitingTime, ActionGather, "/voice/turn?step=time"},
		{"date given with earlier time", StateAwaitingDate, slots(booking.IntentBooking, "2025-06-17", "03:00 PM"), StateAwaitingTime, ActionGather, "/voice/turn?step=time"},
		{"time missing", StateAwaitingTime, slots(booking.IntentBooking, "2025-06-17", ""), StateAwaitingTime, ActionGather, "/voice/turn?step=time"},
		{"time given", StateAwaitingTime, slots(booking.IntentBooking, "2025-06-17", "09:00 AM"), StateConfirmed, ActionHangup, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, d := m.Next(tc.state, tc.slots, 0)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.action, d.Action)
			assert.Equal(t, tc.next, d.Next)
			assert.True(t, tc.state.CanMoveTo(got), "%s -> %s", tc.state, got)
		})
	}
}

func TestNext_NonBookingAlwaysDefers(t *testing.T) {
	m := NewMachine(3)
	for _, s := range []booking.Slots{
		slots(booking.IntentOther, "", ""),
		slots(booking.IntentOther, "2025-06-17", ""),
		slots(booking.IntentOther, "", "03:00 PM"),
		slots(booking.IntentOther, "2025-06-17", "03:00 PM"),
	} {
		got, d := m.Next(StateAwaitingIntent, s, 0)
		assert.Equal(t, StateDeferred, got)
		assert.True(t, d.Ends())
		assert.Equal(t, msgFollowUp, d.Say)
	}
}

func TestNext_ConfirmedOnlyWhenComplete(t *testing.T) {
	m := NewMachine(3)
	intents := []booking.Intent{booking.IntentUnknown, booking.IntentBooking, booking.IntentOther}
	dates := []string{"", "2025-06-17"}
	times := []string{"", "03:00 PM"}
	states := []State{StateWelcome, StateAwaitingIntent, StateAwaitingDate, StateAwaitingTime}

	for _, st := range states {
		for _, in := range intents {
			for _, d := range dates {
				for _, tm := range times {
					s := slots(in, d, tm)
					got, _ := m.Next(st, s, 0)
					if got == StateConfirmed {
						assert.True(t, s.IsComplete(), "%s %+v", st, s)
					}
				}
			}
		}
	}
}

func TestNext_ConfirmationSpeaksBothValues(t *testing.T) {
	m := NewMachine(3)
	_, d := m.Next(StateAwaitingIntent, slots(booking.IntentBooking, "2025-06-17", "03:00 PM"), 0)
	assert.Contains(t, d.Say, "2025-06-17")
	assert.Contains(t, d.Say, "03:00 PM")

	_, d = m.Next(StateAwaitingTime, slots(booking.IntentBooking, "2025-06-18", "10:30 AM"), 0)
	assert.Contains(t, d.Say, "2025-06-18")
	assert.Contains(t, d.Say, "10:30 AM")
}

func TestNext_AskTimeMentionsDate(t *testing.T) {
	m := NewMachine(3)
	_, d := m.Next(StateAwaitingDate, slots(booking.IntentBooking, "2025-06-17", ""), 0)
	assert.Contains(t, d.Prompt, "2025-06-17")

	_, d = m.Next(StateAwaitingDate, slots(booking.IntentBooking, "2025-06-17", "03:00 PM"), 0)
	assert.Equal(t, fmt.Sprintf(msgAskTimeAgain, "2025-06-17"), d.Prompt)
}

func TestReprompt_BoundedEscalation(t *testing.T) {
	m := NewMachine(3)
	s := slots(booking.IntentBooking, "2025-06-17", "")

	for i := 0; i < 3; i++ {
		got, d := m.Next(StateAwaitingTime, s, i)
		assert.Equal(t, StateAwaitingTime, got)
		assert.Equal(t, msgRepromptTime, d.Say)
	}

	got, d := m.Next(StateAwaitingTime, s, 3)
	assert.Equal(t, StateDeferred, got)
	assert.True(t, d.Ends())
	assert.Equal(t, msgHandoff, d.Say)
}

func TestReprompt_UnlimitedWhenZero(t *testing.T) {
	m := NewMachine(0)
	got, _ := m.Next(StateAwaitingDate, slots(booking.IntentBooking, "", ""), 1000)
	assert.Equal(t, StateAwaitingDate, got)
}

func TestReprompt_AwaitingIntent(t *testing.T) {
	m := NewMachine(2)
	got, d := m.Reprompt(StateAwaitingIntent, 0)
	assert.Equal(t, StateAwaitingIntent, got)
	assert.Equal(t, ActionGather, d.Action)
	assert.Equal(t, NextTurn(StepRequest), d.Next)

	got, _ = m.Reprompt(StateAwaitingIntent, 2)
	assert.Equal(t, StateDeferred, got)
}

func TestStart(t *testing.T) {
	m := NewMachine(3)

	st, d := m.Start(ModeMultiTurn)
	assert.Equal(t, StateAwaitingIntent, st)
	assert.Equal(t, ActionGather, d.Action)
	assert.Equal(t, msgGreeting, d.Say)

	st, d = m.Start(ModeSingleShot)
	assert.Equal(t, StateAwaitingIntent, st)
	assert.Equal(t, ActionRecord, d.Action)
	assert.Equal(t, NextTurn(StepRequest), d.Next)
}

func TestNext_UnknownStateApologizes(t *testing.T) {
	got, d := NewMachine(3).Next(State("bogus"), booking.Slots{}, 0)
	assert.Equal(t, StateDeferred, got)
	assert.Equal(t, Apology(), d)
}

func TestStateGraph(t *testing.T) {
	assert.False(t, StateAwaitingIntent.CanMoveTo(StateWelcome))
	assert.False(t, StateAwaitingTime.CanMoveTo(StateAwaitingDate))
	assert.False(t, StateConfirmed.CanMoveTo(StateDeferred))
	assert.True(t, StateAwaitingDate.CanMoveTo(StateAwaitingDate))
	assert.True(t, StateAwaitingIntent.CanMoveTo(StateDeferred))

	assert.True(t, StepDate.FollowUp())
	assert.False(t, StepRequest.FollowUp())
	assert.Equal(t, StepTime, StepFor(StateAwaitingTime))
	assert.Equal(t, StepRequest, StepFor(StateWelcome))
}
