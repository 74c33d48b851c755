package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/room4-2/serviceswarm/messages"
	"github.com/room4-2/serviceswarm/turn"
)

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:3000/monitor", "Monitor websocket URL")
	callID := flag.String("call", "", "Only show turns for this CallSid")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if *callID != "" {
		payload, _ := json.Marshal(messages.ControlPayload{Action: "subscribe", CallID: *callID})
		if err := conn.WriteJSON(messages.ClientMessage{Type: "control", Payload: payload}); err != nil {
			log.Fatalf("Failed to subscribe: %v", err)
		}
	}

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var msg struct {
				Type    string          `json:"type"`
				CallID  string          `json:"callId"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}

			switch msg.Type {
			case messages.TypeTurn:
				var ev turn.Event
				if err := json.Unmarshal(msg.Payload, &ev); err != nil {
					log.Println("Parse error:", err)
					continue
				}
				printEvent(ev)

			case messages.TypeStatus:
				var payload messages.StatusPayload
				_ = json.Unmarshal(msg.Payload, &payload)
				log.Printf("📊 Status: %s %s", payload.Status, payload.Message)

			case messages.TypeError:
				log.Printf("❌ Error: %s", string(msg.Payload))
			}
		}
	}()

	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func printEvent(ev turn.Event) {
	fmt.Printf("📞 %s  %s -> %s  (%s)\n", ev.CallID, ev.From, ev.To, ev.Elapsed)
	if ev.Slots.RawTranscript != "" {
		fmt.Printf("   heard:  %q\n", ev.Slots.RawTranscript)
	}
	fmt.Printf("   slots:  intent=%s date=%s time=%s reprompts=%d\n",
		ev.Slots.Intent, ev.Slots.Date, ev.Slots.Time, ev.Reprompts)
	if ev.Directive.Say != "" || ev.Directive.Prompt != "" {
		fmt.Printf("   said:   %s %s\n", ev.Directive.Say, ev.Directive.Prompt)
	}
	if ev.Outcome != "" {
		fmt.Printf("   ✅ call ended: %s\n", ev.Outcome)
	}
}
