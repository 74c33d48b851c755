package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/booking"
	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/session"
)

// Extractor is the NLU surface the orchestrator needs
type Extractor interface {
	ExtractIntentAndSlots(ctx context.Context, utterance string) booking.ExtractionResult
	ExtractDate(ctx context.Context, utterance string) string
	ExtractTime(ctx context.Context, utterance string) string
	Transcribe(ctx context.Context, ref string) (string, error)
}

// Orchestrator handles one webhook callback at a time per call
type Orchestrator struct {
	sessions  *session.Manager
	extractor Extractor
	machine   dialogue.Machine
	observers []Observer
	recorder  Recorder
	now       func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithObserver adds a turn observer
func WithObserver(o Observer) Option {
	return func(or *Orchestrator) { or.observers = append(or.observers, o) }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(or *Orchestrator) { or.recorder = r }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(or *Orchestrator) { or.now = now }
}

// New creates an Orchestrator
func New(sessions *session.Manager, extractor Extractor, machine dialogue.Machine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:  sessions,
		extractor: extractor,
		machine:   machine,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// turnState carries one turn through HandleTurn
type turnState struct {
	id    string
	start time.Time
	from  dialogue.State
	log   *zap.Logger
}

// HandleTurn processes one callback for callID and always returns a
// directive the gateway can render.
func (o *Orchestrator) HandleTurn(ctx context.Context, callID string, in Input) (directive dialogue.Directive) {
	ts := &turnState{
		id:    uuid.NewString(),
		start: o.now(),
		log:   logger.L().With(zap.String("call_id", callID)),
	}
	ts.log = ts.log.With(zap.String("turn_id", ts.id))

	defer func() {
		if r := recover(); r != nil {
			ts.log.Error("Turn panicked", zap.Any("panic", r))
			directive = dialogue.Apology()
		}
	}()

	if strings.TrimSpace(callID) == "" {
		ts.log.Warn("Callback without call id")
		return dialogue.Apology()
	}

	unlock := o.sessions.Lock(callID)
	defer unlock()

	s, err := o.sessions.GetSession(ctx, callID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		if in.Kind != KindStart && in.Step.FollowUp() {
			ts.log.Warn("Follow-up turn for unknown call", zap.String("step", string(in.Step)))
			o.ended(OutcomeApology)
			o.emit(ts, &session.Session{CallID: callID}, dialogue.Apology(), OutcomeApology)
			return dialogue.Apology()
		}
		s = session.New(callID, in.Mode, ts.start)
		ts.log.Info("Session created", zap.String("mode", string(s.Mode)))
	case err != nil:
		ts.log.Error("Failed to load session", zap.Error(err))
		return dialogue.Apology()
	}
	ts.from = s.State

	if s.State == dialogue.StateWelcome {
		st, d := o.machine.Start(s.Mode)
		if err := s.Advance(st, o.now()); err != nil {
			return o.abort(ctx, ts, s, err)
		}
		if in.Kind == KindStart {
			return o.commit(ctx, ts, s, d)
		}
	} else if in.Kind == KindStart {
		// Duplicate call-start callback: ask the pending question again
		ts.log.Info("Repeated call start", zap.String("state", string(s.State)))
		_, d := o.machine.Reprompt(s.State, 0)
		s.UpdatedAt = o.now()
		return o.commit(ctx, ts, s, d)
	}

	utterance := in.Transcript
	if in.Kind == KindRecording {
		text, err := o.extractor.Transcribe(ctx, in.RecordingURL)
		if err != nil {
			ts.log.Warn("Recording could not be transcribed", zap.Error(err))
			return o.finish(ctx, ts, s, dialogue.Apology(), OutcomeApology)
		}
		utterance = text
	}
	utterance = strings.TrimSpace(utterance)

	if utterance == "" {
		ts.log.Info("Turn carried no speech", zap.String("state", string(s.State)))
		st, d := o.machine.Reprompt(s.State, s.Reprompts)
		if err := s.Advance(st, o.now()); err != nil {
			return o.abort(ctx, ts, s, err)
		}
		return o.commit(ctx, ts, s, d)
	}

	// Only an answer heard on this turn fills the slot being asked for
	answered := true
	switch s.State {
	case dialogue.StateAwaitingIntent:
		r := o.extractor.ExtractIntentAndSlots(ctx, utterance)
		ts.log.Info("Extracted request",
			zap.String("utterance", utterance),
			zap.String("outcome", r.Outcome.String()),
			zap.String("intent", string(r.Intent)),
			zap.String("date", r.Date),
			zap.String("time", r.Time),
		)
		s.Slots = s.Slots.Merge(r)
	case dialogue.StateAwaitingDate:
		date := o.extractor.ExtractDate(ctx, utterance)
		ts.log.Info("Date slot input", zap.String("utterance", utterance), zap.String("date", date))
		s.Slots = s.Slots.Merge(booking.ExtractionResult{Date: date, RawTranscript: utterance})
		answered = date != ""
	case dialogue.StateAwaitingTime:
		tm := o.extractor.ExtractTime(ctx, utterance)
		ts.log.Info("Time slot input", zap.String("utterance", utterance), zap.String("time", tm))
		s.Slots = s.Slots.Merge(booking.ExtractionResult{Time: tm, RawTranscript: utterance})
		answered = tm != ""
	}

	var st dialogue.State
	var d dialogue.Directive
	if answered {
		st, d = o.machine.Next(s.State, s.Slots, s.Reprompts)
	} else {
		st, d = o.machine.Reprompt(s.State, s.Reprompts)
	}
	if err := s.Advance(st, o.now()); err != nil {
		return o.abort(ctx, ts, s, err)
	}
	return o.commit(ctx, ts, s, d)
}

// Abandon drops the session of a call the gateway reports as ended
func (o *Orchestrator) Abandon(ctx context.Context, callID string) {
	unlock := o.sessions.Lock(callID)
	defer unlock()

	s, err := o.sessions.GetSession(ctx, callID)
	if err != nil {
		return
	}
	if err := o.sessions.RemoveSession(ctx, callID); err != nil {
		logger.Warn("Failed to remove abandoned session", zap.String("call_id", callID), zap.Error(err))
		return
	}
	logger.Info("Call abandoned",
		zap.String("call_id", callID),
		zap.String("state", string(s.State)),
	)
	o.ended(OutcomeAbandoned)
	o.emit(&turnState{id: uuid.NewString(), start: o.now(), from: s.State}, s,
		dialogue.Directive{Action: dialogue.ActionHangup}, OutcomeAbandoned)
}

// commit saves s, or deletes it when the dialogue is over
func (o *Orchestrator) commit(ctx context.Context, ts *turnState, s *session.Session, d dialogue.Directive) dialogue.Directive {
	switch s.State {
	case dialogue.StateConfirmed:
		ts.log.Info("Booking confirmed", zap.String("date", s.Slots.Date), zap.String("time", s.Slots.Time))
		return o.finish(ctx, ts, s, d, OutcomeConfirmed)
	case dialogue.StateDeferred:
		return o.finish(ctx, ts, s, d, OutcomeDeferred)
	}

	if err := o.sessions.SaveSession(ctx, s); err != nil {
		ts.log.Error("Failed to save session", zap.Error(err))
		return dialogue.Apology()
	}
	o.turnHandled(s.State)
	o.emit(ts, s, d, "")
	return d
}

func (o *Orchestrator) finish(ctx context.Context, ts *turnState, s *session.Session, d dialogue.Directive, outcome string) dialogue.Directive {
	if err := o.sessions.RemoveSession(ctx, s.CallID); err != nil {
		// The sweeper reclaims it later
		ts.log.Warn("Failed to remove finished session", zap.Error(err))
	}
	ts.log.Info("Call finished", zap.String("outcome", outcome), zap.Int("turns", s.Turns))
	o.turnHandled(s.State)
	o.ended(outcome)
	o.emit(ts, s, d, outcome)
	return d
}

func (o *Orchestrator) abort(ctx context.Context, ts *turnState, s *session.Session, err error) dialogue.Directive {
	ts.log.Error("Dialogue error", zap.Error(err))
	return o.finish(ctx, ts, s, dialogue.Apology(), OutcomeApology)
}

func (o *Orchestrator) turnHandled(state dialogue.State) {
	if o.recorder != nil {
		o.recorder.TurnHandled(string(state))
	}
}

func (o *Orchestrator) ended(outcome string) {
	if o.recorder != nil {
		o.recorder.CallEnded(outcome)
	}
}

func (o *Orchestrator) emit(ts *turnState, s *session.Session, d dialogue.Directive, outcome string) {
	if len(o.observers) == 0 {
		return
	}
	now := o.now()
	ev := Event{
		TurnID:    ts.id,
		CallID:    s.CallID,
		From:      ts.from,
		To:        s.State,
		Directive: d,
		Slots:     s.Slots,
		Reprompts: s.Reprompts,
		Outcome:   outcome,
		Elapsed:   now.Sub(ts.start),
		At:        now,
	}
	for _, obs := range o.observers {
		obs.TurnCompleted(ev)
	}
}
