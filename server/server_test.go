package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/serviceswarm/booking"
	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/messages"
	"github.com/room4-2/serviceswarm/turn"
)

type fakeCalls struct {
	mu        sync.Mutex
	inputs    []turn.Input
	callIDs   []string
	abandoned []string
	reply     dialogue.Directive
	panic     bool
}

func (f *fakeCalls) HandleTurn(_ context.Context, callID string, in turn.Input) dialogue.Directive {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	f.callIDs = append(f.callIDs, callID)
	f.inputs = append(f.inputs, in)
	return f.reply
}

func (f *fakeCalls) Abandon(_ context.Context, callID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, callID)
}

type fixedCount int

func (n fixedCount) GetActiveSessionCount(context.Context) int { return int(n) }

func testConfig() *config.Config {
	return &config.Config{
		Port:              0,
		TwilioVoice:       "Polly.Joanna",
		ExtractionTimeout: time.Second,
		AllowedOrigins:    []string{"*"},
	}
}

func post(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVoiceOnlinePing(t *testing.T) {
	s := NewServer(testConfig(), &fakeCalls{}, fixedCount(0))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voice", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, messages.ContentTypeXML, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ServiceSwarm is online and ready to handle calls.")
}

func TestVoiceCallStarts(t *testing.T) {
	_, greet := dialogue.NewMachine(3).Start(dialogue.ModeMultiTurn)
	calls := &fakeCalls{reply: greet}
	s := NewServer(testConfig(), calls, fixedCount(0))

	rec := post(t, s.Handler(), "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15550100"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<Gather input="speech" action="/voice/turn?step=request"`)
	require.Len(t, calls.inputs, 1)
	assert.Equal(t, "CA1", calls.callIDs[0])
	assert.Equal(t, turn.Start(dialogue.ModeMultiTurn), calls.inputs[0])
}

func TestRecordedCallStarts(t *testing.T) {
	calls := &fakeCalls{reply: dialogue.Apology()}
	s := NewServer(testConfig(), calls, fixedCount(0))

	post(t, s.Handler(), "/voice/recorded", url.Values{"CallSid": {"CA2"}})

	require.Len(t, calls.inputs, 1)
	assert.Equal(t, dialogue.ModeSingleShot, calls.inputs[0].Mode)
}

func TestTurnInputs(t *testing.T) {
	tests := []struct {
		name   string
		target string
		form   url.Values
		want   turn.Input
	}{
		{
			name:   "speech",
			target: "/voice/turn?step=date",
			form:   url.Values{"CallSid": {"CA3"}, "SpeechResult": {"next tuesday"}},
			want:   turn.Speech(dialogue.StepDate, "next tuesday"),
		},
		{
			name:   "recording",
			target: "/voice/turn?step=request",
			form:   url.Values{"CallSid": {"CA3"}, "RecordingUrl": {"https://api.twilio.com/rec/RE1"}},
			want:   turn.Recording(dialogue.StepRequest, "https://api.twilio.com/rec/RE1"),
		},
		{
			name:   "silence",
			target: "/voice/turn?step=time",
			form:   url.Values{"CallSid": {"CA3"}},
			want:   turn.Speech(dialogue.StepTime, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := &fakeCalls{reply: dialogue.Apology()}
			s := NewServer(testConfig(), calls, fixedCount(0))

			rec := post(t, s.Handler(), tt.target, tt.form)

			assert.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, calls.inputs, 1)
			assert.Equal(t, tt.want, calls.inputs[0])
		})
	}
}

func TestTurnRejectsGet(t *testing.T) {
	s := NewServer(testConfig(), &fakeCalls{}, fixedCount(0))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voice/turn", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPanicRendersApology(t *testing.T) {
	s := NewServer(testConfig(), &fakeCalls{panic: true}, fixedCount(0))

	rec := post(t, s.Handler(), "/voice/turn?step=date", url.Values{"CallSid": {"CA4"}, "SpeechResult": {"hi"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "couldn&#39;t process your call")
	assert.Contains(t, rec.Body.String(), "<Hangup>")
}

func TestStatusCallback(t *testing.T) {
	calls := &fakeCalls{}
	s := NewServer(testConfig(), calls, fixedCount(0))

	rec := post(t, s.Handler(), "/voice/status", url.Values{"CallSid": {"CA5"}, "CallStatus": {"in-progress"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, calls.abandoned)

	post(t, s.Handler(), "/voice/status", url.Values{"CallSid": {"CA5"}, "CallStatus": {"completed"}})
	post(t, s.Handler(), "/voice/status", url.Values{"CallSid": {"CA6"}, "CallStatus": {"no-answer"}})
	assert.Equal(t, []string{"CA5", "CA6"}, calls.abandoned)
}

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(), &fakeCalls{}, fixedCount(4))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":4}`, rec.Body.String())
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics")
	})
	s := NewServer(testConfig(), &fakeCalls{}, fixedCount(0), WithMetrics(metrics))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, "# metrics", rec.Body.String())
}

func dialMonitor(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	s := NewServer(testConfig(), &fakeCalls{}, fixedCount(0), WithMonitor(hub))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/monitor", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var hello messages.ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, messages.TypeStatus, hello.Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestMonitorStreamsTurns(t *testing.T) {
	hub := NewHub([]string{"*"})
	conn := dialMonitor(t, hub)

	hub.TurnCompleted(turn.Event{
		CallID: "CA7",
		From:   dialogue.StateAwaitingIntent,
		To:     dialogue.StateAwaitingDate,
		Slots:  booking.Slots{Intent: booking.IntentBooking},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, messages.TypeTurn, msg["type"])
	assert.Equal(t, "CA7", msg["callId"])
	payload := msg["payload"].(map[string]interface{})
	assert.Equal(t, "awaiting_date", payload["to"])
}

func TestMonitorSubscribeFilters(t *testing.T) {
	hub := NewHub([]string{"*"})
	conn := dialMonitor(t, hub)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "control",
		"payload": map[string]string{"action": "subscribe", "callId": "CA9"},
	}))
	ack := readMessage(t, conn)
	require.Equal(t, messages.TypeStatus, ack["type"])

	hub.TurnCompleted(turn.Event{CallID: "CA8"})
	hub.TurnCompleted(turn.Event{CallID: "CA9"})

	msg := readMessage(t, conn)
	assert.Equal(t, "CA9", msg["callId"])
}

func TestMonitorRejectsUnknownControl(t *testing.T) {
	hub := NewHub([]string{"*"})
	conn := dialMonitor(t, hub)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "control",
		"payload": map[string]string{"action": "reboot"},
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, messages.TypeError, msg["type"])
}

func TestHubClose(t *testing.T) {
	hub := NewHub([]string{"*"})
	conn := dialMonitor(t, hub)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	// Events after close are dropped without blocking
	hub.TurnCompleted(turn.Event{CallID: "CA10"})
}

func TestShutdownEndsStart(t *testing.T) {
	srv := NewServer(testConfig(), &fakeCalls{}, fixedCount(0))

	started := make(chan error, 1)
	go func() { started <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-started:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
