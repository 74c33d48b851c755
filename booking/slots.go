package booking

import "strings"

// Intent is the caller's classified request type
type Intent string

const (
	IntentUnknown Intent = ""
	IntentBooking Intent = "booking"
	IntentOther   Intent = "other"
)

// ParseIntent maps a free-form label to an Intent. Anything that is not
// recognisably a booking is Other; an empty label stays Unknown.
func ParseIntent(label string) Intent {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		return IntentUnknown
	case "booking", "book", "appointment", "schedule":
		return IntentBooking
	default:
		return IntentOther
	}
}

// Slots holds what has been gathered from the caller so far
type Slots struct {
	Intent        Intent `json:"intent"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM AM/PM
	RawTranscript string `json:"raw_transcript"`
}

func (s Slots) HasIntent() bool { return s.Intent != IntentUnknown }

func (s Slots) IsBooking() bool { return s.Intent == IntentBooking }

func (s Slots) HasDate() bool { return s.Date != "" }

func (s Slots) HasTime() bool { return s.Time != "" }

// IsComplete reports whether a booking can be confirmed
func (s Slots) IsComplete() bool {
	return s.IsBooking() && s.HasDate() && s.HasTime()
}

// Merge applies r field by field. Non-empty fields in r overwrite, empty
// fields leave the current value alone.
func (s Slots) Merge(r ExtractionResult) Slots {
	if r.Intent != IntentUnknown {
		s.Intent = r.Intent
	}
	if r.Date != "" {
		s.Date = r.Date
	}
	if r.Time != "" {
		s.Time = r.Time
	}
	if r.RawTranscript != "" {
		s.RawTranscript = r.RawTranscript
	}
	return s
}
