package turn

import (
	"time"

	"github.com/room4-2/serviceswarm/booking"
	"github.com/room4-2/serviceswarm/dialogue"
)

// Kind says what a callback carries
type Kind int

const (
	// KindStart is the call-start callback; it carries no speech.
	KindStart Kind = iota
	// KindSpeech carries a transcript recognised by the gateway.
	KindSpeech
	// KindRecording carries a reference to recorded audio.
	KindRecording
)

// Input is one inbound callback as the orchestrator sees it
type Input struct {
	Kind         Kind
	Mode         dialogue.Mode // KindStart only
	Step         dialogue.Step // question the previous directive asked
	Transcript   string
	RecordingURL string
}

// Start is the first callback of a call
func Start(mode dialogue.Mode) Input {
	return Input{Kind: KindStart, Mode: mode}
}

// Speech is a gathered speech turn. An empty transcript is a malformed turn
// and gets a reprompt.
func Speech(step dialogue.Step, transcript string) Input {
	return Input{Kind: KindSpeech, Step: step, Transcript: transcript}
}

// Recording is a recorded-audio turn
func Recording(step dialogue.Step, url string) Input {
	return Input{Kind: KindRecording, Step: step, RecordingURL: url}
}

// Outcome labels for calls that ended
const (
	OutcomeConfirmed = "confirmed"
	OutcomeDeferred  = "deferred"
	OutcomeApology   = "apology"
	OutcomeAbandoned = "abandoned"
)

// Event describes one handled turn for observers
type Event struct {
	TurnID    string             `json:"turnId"`
	CallID    string             `json:"callId"`
	From      dialogue.State     `json:"from"`
	To        dialogue.State     `json:"to"`
	Directive dialogue.Directive `json:"directive"`
	Slots     booking.Slots      `json:"slots"`
	Reprompts int                `json:"reprompts"`
	Outcome   string             `json:"outcome,omitempty"`
	Elapsed   time.Duration      `json:"elapsed"`
	At        time.Time          `json:"at"`
}

// Observer is notified after every turn. Implementations must not block.
type Observer interface {
	TurnCompleted(Event)
}

// Recorder receives counters for metrics
type Recorder interface {
	TurnHandled(state string)
	CallEnded(outcome string)
}
