package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/providers"
)

func main() {
	op := flag.String("op", "intent", "Extraction to run: intent, date, time or transcribe")
	flag.Parse()

	input := strings.Join(flag.Args(), " ")
	if input == "" {
		log.Fatal("usage: nlu-probe [-op intent|date|time|transcribe] <utterance or recording URL>")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	p, err := providers.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}
	extractor := providers.NewExtractor(p, cfg)

	log.Printf("Provider %s, timezone %s", cfg.NLUProvider, cfg.Timezone)

	switch *op {
	case "intent":
		r := extractor.ExtractIntentAndSlots(ctx, input)
		fmt.Printf("outcome=%s intent=%q date=%q time=%q\n", r.Outcome, r.Intent, r.Date, r.Time)
	case "date":
		fmt.Printf("date=%q\n", extractor.ExtractDate(ctx, input))
	case "time":
		fmt.Printf("time=%q\n", extractor.ExtractTime(ctx, input))
	case "transcribe":
		text, err := extractor.Transcribe(ctx, input)
		if err != nil {
			log.Fatalf("Transcription failed: %v", err)
		}
		fmt.Println(text)
	default:
		log.Fatalf("Unknown op: %s", *op)
	}
}
