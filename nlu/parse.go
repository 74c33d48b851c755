package nlu

import (
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/room4-2/serviceswarm/booking"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "03:04 PM"
)

var errNoJSONObject = errors.New("no JSON object in model reply")

// timeLayouts are the spellings accepted from the model, normalized to
// timeLayout
var timeLayouts = []string{
	"03:04 PM", "3:04 PM", "03:04PM", "3:04PM",
	"03 PM", "3 PM", "3PM",
	"15:04",
}

// parseSlots decodes the reply to the intent instruction. A reply that is
// not a JSON object is an error; individual fields that are missing or of
// the wrong shape are dropped.
func parseSlots(reply, utterance string) (booking.ExtractionResult, error) {
	body, err := jsonObject(reply)
	if err != nil {
		return booking.ExtractionResult{}, err
	}

	var fields map[string]interface{}
	if err := sonic.UnmarshalString(body, &fields); err != nil {
		return booking.ExtractionResult{}, err
	}

	intent := booking.ParseIntent(stringField(fields, "intent"))
	if intent == booking.IntentUnknown {
		intent = booking.IntentOther
	}

	return booking.ExtractionResult{
		Outcome:       booking.OutcomeParsed,
		Intent:        intent,
		Date:          normalizeDate(stringField(fields, "date")),
		Time:          normalizeTime(stringField(fields, "time")),
		RawTranscript: utterance,
	}, nil
}

// parseField reads a single-value reply. The model is asked for a bare
// value but sometimes wraps it in quotes, code fences or a JSON object.
func parseField(reply, key string) string {
	if body, err := jsonObject(reply); err == nil {
		var fields map[string]interface{}
		if sonic.UnmarshalString(body, &fields) == nil {
			return stringField(fields, key)
		}
	}
	return trimValue(stripFences(reply))
}

func stringField(fields map[string]interface{}, key string) string {
	v, ok := fields[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func jsonObject(reply string) (string, error) {
	s := stripFences(reply)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return s[start : end+1], nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func trimValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`. ")
}

// normalizeDate returns d as YYYY-MM-DD, or "" when it is not a calendar date
func normalizeDate(d string) string {
	d = trimValue(d)
	if d == "" {
		return ""
	}
	t, err := time.Parse(dateLayout, d)
	if err != nil {
		return ""
	}
	return t.Format(dateLayout)
}

// normalizeTime returns t as HH:MM AM/PM, or "" when it is not a clock time
func normalizeTime(t string) string {
	t = strings.ToUpper(trimValue(t))
	t = strings.NewReplacer("A.M", "AM", "P.M", "PM").Replace(t)
	if t == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed.Format(timeLayout)
		}
	}
	return ""
}
