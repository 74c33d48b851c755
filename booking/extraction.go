package booking

// Outcome tags how an ExtractionResult was produced
type Outcome int

const (
	// OutcomeParsed means the upstream response decoded into fields.
	OutcomeParsed Outcome = iota
	// OutcomeFailed means the call failed, timed out or returned garbage.
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeFailed {
		return "failed"
	}
	return "parsed"
}

// ExtractionResult is the decoded output of one NLU call. It is never
// stored; it is merged into Slots and dropped.
type ExtractionResult struct {
	Outcome       Outcome
	Intent        Intent
	Date          string
	Time          string
	RawTranscript string
}

// Failed reports whether the upstream call could not be used
func (r ExtractionResult) Failed() bool { return r.Outcome == OutcomeFailed }

// FailedExtraction is the safe fallback for an intent extraction that could
// not be decoded: the caller is treated as a non-booking request.
func FailedExtraction(utterance string) ExtractionResult {
	return ExtractionResult{
		Outcome:       OutcomeFailed,
		Intent:        IntentOther,
		RawTranscript: utterance,
	}
}
