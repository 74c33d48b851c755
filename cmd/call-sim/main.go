package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/dialogue"
	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/providers"
	"github.com/room4-2/serviceswarm/session"
	"github.com/room4-2/serviceswarm/turn"
)

// Drives a whole call against the real extractor from the terminal. Each
// input line is one caller turn; a line starting with "rec " is treated as a
// recording URL.
func main() {
	singleShot := flag.Bool("record", false, "Start in single-shot recording mode")
	verbose := flag.Bool("v", false, "Log turns to stdout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		if err := logger.Init(&logger.LogConfig{Level: "debug"}, "dev"); err != nil {
			log.Fatalf("Failed to init logger: %v", err)
		}
	}

	ctx := context.Background()
	p, err := providers.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}

	sessions := session.NewManager(session.NewMemoryStore(cfg.SessionTimeout), cfg.SweepInterval)
	defer sessions.Shutdown()
	orch := turn.New(sessions, providers.NewExtractor(p, cfg), dialogue.NewMachine(cfg.MaxReprompts))

	mode := dialogue.ModeMultiTurn
	if *singleShot {
		mode = dialogue.ModeSingleShot
	}
	callID := "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")

	d := orch.HandleTurn(ctx, callID, turn.Start(mode))
	step := speak(d)

	in := bufio.NewScanner(os.Stdin)
	for !d.Ends() {
		fmt.Print("caller> ")
		if !in.Scan() {
			orch.Abandon(ctx, callID)
			fmt.Println("\n(caller hung up)")
			return
		}
		line := strings.TrimSpace(in.Text())

		var input turn.Input
		if url, ok := strings.CutPrefix(line, "rec "); ok {
			input = turn.Recording(step, strings.TrimSpace(url))
		} else {
			input = turn.Speech(step, line)
		}
		d = orch.HandleTurn(ctx, callID, input)
		step = speak(d)
	}
}

// speak prints the directive and returns the step the next turn answers
func speak(d dialogue.Directive) dialogue.Step {
	if d.Say != "" {
		fmt.Println("agent>", d.Say)
	}
	if d.Prompt != "" {
		fmt.Println("agent>", d.Prompt)
	}
	switch d.Action {
	case dialogue.ActionRecord:
		fmt.Println("(recording; enter \"rec <url>\")")
	case dialogue.ActionHangup:
		fmt.Println("(hangup)")
	}

	if i := strings.Index(d.Next, "step="); i >= 0 {
		return dialogue.Step(d.Next[i+len("step="):])
	}
	return dialogue.StepRequest
}
