// Package nlu turns caller speech into booking slots. Every operation is
// total: upstream failures, timeouts and malformed model output come back as
// "nothing extracted", never as an error that aborts the turn. The one
// exception is Transcribe, whose failure the caller must be able to tell
// apart from silence.
package nlu

import (
	"context"
	"errors"
	"time"
)

// ErrTranscriptionFailed marks a recording that could not be fetched or
// transcribed
var ErrTranscriptionFailed = errors.New("transcription failed")

// Completer sends one instruction plus one user utterance to a language
// model and returns its raw text reply
type Completer interface {
	Complete(ctx context.Context, instruction, utterance string) (string, error)
}

// Audio is a downloaded recording
type Audio struct {
	Data     []byte
	MIMEType string
}

// Transcriber converts audio to plain text
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// AudioSource resolves a recording reference into audio bytes
type AudioSource interface {
	Fetch(ctx context.Context, ref string) (Audio, error)
}

// Observer receives per-call outcomes, used for metrics
type Observer interface {
	ObserveExtraction(op string, elapsed time.Duration, ok bool)
}

// Operation names reported to the Observer
const (
	OpIntent     = "intent"
	OpDate       = "date"
	OpTime       = "time"
	OpTranscribe = "transcribe"
)
