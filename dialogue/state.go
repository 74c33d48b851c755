package dialogue

// State is a position in the booking dialogue
type State string

const (
	StateWelcome        State = "welcome"
	StateAwaitingIntent State = "awaiting_intent"
	StateAwaitingDate   State = "awaiting_date"
	StateAwaitingTime   State = "awaiting_time"
	StateConfirmed      State = "confirmed"
	StateDeferred       State = "deferred"
)

// rank orders states along the graph; transitions never decrease it
var rank = map[State]int{
	StateWelcome:        0,
	StateAwaitingIntent: 1,
	StateAwaitingDate:   2,
	StateAwaitingTime:   3,
	StateConfirmed:      4,
	StateDeferred:       4,
}

// Valid reports whether s is a known state
func (s State) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether the dialogue is over in state s
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateDeferred
}

// CanMoveTo reports whether to is reachable from s without going back
func (s State) CanMoveTo(to State) bool {
	if to == StateWelcome {
		return false
	}
	if s.Terminal() {
		return s == to
	}
	return rank[to] >= rank[s]
}

// Step names the question a gather was issued for. It travels on the
// next-turn URL so a follow-up can be recognised even when its session is
// gone.
type Step string

const (
	StepRequest Step = "request"
	StepDate    Step = "date"
	StepTime    Step = "time"
)

// FollowUp reports whether the step answers a question asked mid-dialogue
func (s Step) FollowUp() bool {
	return s == StepDate || s == StepTime
}

// StepFor returns the step a state is waiting on
func StepFor(s State) Step {
	switch s {
	case StateAwaitingDate:
		return StepDate
	case StateAwaitingTime:
		return StepTime
	default:
		return StepRequest
	}
}

// Mode selects how the caller's first request is captured
type Mode string

const (
	// ModeMultiTurn gathers speech recognised by the gateway.
	ModeMultiTurn Mode = "multi-turn"
	// ModeSingleShot records audio and transcribes it server side.
	ModeSingleShot Mode = "single-shot"
)
