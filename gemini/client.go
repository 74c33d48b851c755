package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/nlu"
)

const (
	defaultModel = "gemini-2.5-flash"

	transcribePrompt = "Transcribe this phone call recording verbatim. " +
		"Reply with the spoken words only. If nothing intelligible was said, reply with an empty string."
)

// Client sends NLU and transcription requests to Gemini using the official SDK
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for the given model
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// Complete sends one system instruction and one user utterance
func (c *Client) Complete(ctx context.Context, instruction, utterance string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(utterance), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	logger.Debug("Received from Gemini", zap.String("model", c.model), zap.String("text", text))
	return text, nil
}

// Transcribe sends the recording inline and returns the spoken words
func (c *Client) Transcribe(ctx context.Context, audio nlu.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("empty recording")
	}
	mimeType := audio.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(audio.Data, mimeType),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	logger.Debug("Gemini transcription", zap.Int("audio_bytes", len(audio.Data)), zap.String("text", text))
	return text, nil
}
