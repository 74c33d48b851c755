package dialogue

// Action is what the telephony layer should do after speaking
type Action string

const (
	// ActionGather captures the caller's next speech and posts it to Next.
	ActionGather Action = "gather"
	// ActionRecord records the caller and posts the recording to Next.
	ActionRecord Action = "record"
	// ActionHangup ends the call.
	ActionHangup Action = "hangup"
)

// PathTurn is the endpoint every follow-up turn is posted to
const PathTurn = "/voice/turn"

// Directive is the engine's abstract next action for one call
type Directive struct {
	Action Action `json:"action"`
	Say    string `json:"say,omitempty"`    // spoken first
	Prompt string `json:"prompt,omitempty"` // spoken while listening
	Next   string `json:"next,omitempty"`   // next-turn endpoint for gather/record
}

// Ends reports whether the directive hangs up
func (d Directive) Ends() bool { return d.Action == ActionHangup }

// NextTurn returns the endpoint for the turn answering step
func NextTurn(step Step) string {
	return PathTurn + "?step=" + string(step)
}

func gather(say, prompt string, step Step) Directive {
	return Directive{Action: ActionGather, Say: say, Prompt: prompt, Next: NextTurn(step)}
}

func hangup(say string) Directive {
	return Directive{Action: ActionHangup, Say: say}
}

// Apology ends the call when no slot context can be recovered
func Apology() Directive {
	return hangup(msgApology)
}

// Online is the liveness reply for gateway test pings
func Online() Directive {
	return hangup(msgOnline)
}
