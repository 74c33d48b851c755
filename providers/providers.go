// Package providers selects the NLU backend named in the configuration.
package providers

import (
	"context"
	"fmt"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/gemini"
	"github.com/room4-2/serviceswarm/nlu"
	"github.com/room4-2/serviceswarm/openai"
	"github.com/room4-2/serviceswarm/recording"
)

// Provider is what every NLU backend implements
type Provider interface {
	nlu.Completer
	nlu.Transcriber
}

// New returns the backend cfg.NLUProvider names
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.NLUProvider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.TranscriptionModel), nil
	default:
		return nil, fmt.Errorf("unknown NLU provider %q", cfg.NLUProvider)
	}
}

// NewExtractor builds the extractor the engine runs with, recordings fetched
// from the telephony gateway
func NewExtractor(p Provider, cfg *config.Config, opts ...nlu.Option) *nlu.Extractor {
	fetcher := recording.NewFetcher(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.MaxRecordingBytes)
	base := []nlu.Option{
		nlu.WithTranscription(fetcher, p),
		nlu.WithTimeout(cfg.ExtractionTimeout),
		nlu.WithLocation(cfg.Timezone),
	}
	return nlu.NewExtractor(p, append(base, opts...)...)
}
