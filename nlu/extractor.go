package nlu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/booking"
	"github.com/room4-2/serviceswarm/logger"
)

const (
	intentInstruction = "You are an assistant for scheduling HVAC service. Today is %s. " +
		"Parse the transcript into JSON with keys: intent ('booking' or 'other'), " +
		"date (YYYY-MM-DD or ''), time (HH:MM AM/PM or ''), raw_transcript. " +
		"Resolve relative dates against today in the %s timezone. Reply with the JSON object only."
	dateInstruction = "Convert the following into an absolute date in YYYY-MM-DD format in %s timezone. " +
		"Today is %s. If you cannot, return an empty string."
	timeInstruction = "Convert the following into a time in HH:MM AM/PM format. " +
		"If you cannot, return an empty string."
)

// Extractor wraps the NLU and transcription services
type Extractor struct {
	completer   Completer
	transcriber Transcriber
	source      AudioSource
	timeout     time.Duration
	location    *time.Location
	now         func() time.Time
	observer    Observer
}

// Option configures an Extractor
type Option func(*Extractor)

// WithTranscription enables Transcribe
func WithTranscription(source AudioSource, transcriber Transcriber) Option {
	return func(e *Extractor) {
		e.source = source
		e.transcriber = transcriber
	}
}

// WithTimeout bounds every upstream call
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithLocation sets the timezone relative dates are resolved in
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) { e.location = loc }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithObserver reports each call's latency and outcome
func WithObserver(o Observer) Option {
	return func(e *Extractor) { e.observer = o }
}

// NewExtractor creates an Extractor on top of a model client
func NewExtractor(completer Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		timeout:   8 * time.Second,
		location:  time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractIntentAndSlots classifies the utterance and pulls any date and time
// out of it. On any failure the result is FailedExtraction(utterance).
func (e *Extractor) ExtractIntentAndSlots(ctx context.Context, utterance string) booking.ExtractionResult {
	instruction := fmt.Sprintf(intentInstruction, e.today(), e.location.String())

	reply, err := e.complete(ctx, OpIntent, instruction, utterance)
	if err != nil {
		return booking.FailedExtraction(utterance)
	}

	result, err := parseSlots(reply, utterance)
	if err != nil {
		logger.Warn("NLU parse error",
			zap.String("utterance", utterance),
			zap.String("reply", reply),
			zap.Error(err),
		)
		return booking.FailedExtraction(utterance)
	}
	return result
}

// ExtractDate returns the date in the utterance as YYYY-MM-DD, or ""
func (e *Extractor) ExtractDate(ctx context.Context, utterance string) string {
	instruction := fmt.Sprintf(dateInstruction, e.location.String(), e.today())
	reply, err := e.complete(ctx, OpDate, instruction, utterance)
	if err != nil {
		return ""
	}
	return normalizeDate(parseField(reply, "date"))
}

// ExtractTime returns the time in the utterance as HH:MM AM/PM, or ""
func (e *Extractor) ExtractTime(ctx context.Context, utterance string) string {
	reply, err := e.complete(ctx, OpTime, timeInstruction, utterance)
	if err != nil {
		return ""
	}
	return normalizeTime(parseField(reply, "time"))
}

// Transcribe downloads the referenced recording and converts it to text.
// Any failure is reported as ErrTranscriptionFailed.
func (e *Extractor) Transcribe(ctx context.Context, ref string) (string, error) {
	if e.source == nil || e.transcriber == nil {
		return "", fmt.Errorf("%w: transcription not configured", ErrTranscriptionFailed)
	}
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%w: empty recording reference", ErrTranscriptionFailed)
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()

	start := time.Now()
	audio, err := e.source.Fetch(ctx, ref)
	if err != nil {
		e.observe(OpTranscribe, time.Since(start), false)
		logger.Warn("Recording download failed", zap.String("recording", ref), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text, err := e.transcriber.Transcribe(ctx, audio)
	e.observe(OpTranscribe, time.Since(start), err == nil)
	if err != nil {
		logger.Warn("Transcription failed", zap.String("recording", ref), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Extractor) complete(ctx context.Context, op, instruction, utterance string) (string, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	start := time.Now()
	reply, err := e.completer.Complete(ctx, instruction, utterance)
	e.observe(op, time.Since(start), err == nil)
	if err != nil {
		logger.Warn("NLU request failed",
			zap.String("op", op),
			zap.String("utterance", utterance),
			zap.Error(err),
		)
		return "", err
	}
	return reply, nil
}

// bounded detaches ctx from the inbound request so a hangup lets the call
// finish, and caps it with the extraction timeout
func (e *Extractor) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
}

func (e *Extractor) today() string {
	return e.now().In(e.location).Format("Monday, " + dateLayout)
}

func (e *Extractor) observe(op string, elapsed time.Duration, ok bool) {
	if e.observer != nil {
		e.observer.ObserveExtraction(op, elapsed, ok)
	}
}
