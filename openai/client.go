package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/logger"
	"github.com/room4-2/serviceswarm/nlu"
)

// Client sends NLU requests to the chat completions API and recordings to
// the transcription API
type Client struct {
	client             *goopenai.Client
	model              string
	transcriptionModel string
}

// NewClient creates a client. baseURL may be empty for the public API.
func NewClient(apiKey, baseURL, model, transcriptionModel string) *Client {
	config := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = goopenai.GPT4o
	}
	if transcriptionModel == "" {
		transcriptionModel = goopenai.Whisper1
	}

	return &Client{
		client:             goopenai.NewClientWithConfig(config),
		model:              model,
		transcriptionModel: transcriptionModel,
	}
}

// Complete sends one system instruction and one user utterance with
// temperature 0
func (c *Client) Complete(ctx context.Context, instruction, utterance string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: instruction},
			{Role: goopenai.ChatMessageRoleUser, Content: utterance},
		},
		// Zero is dropped by omitempty; this is sent as 0
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	logger.Debug("Received from OpenAI",
		zap.String("model", c.model),
		zap.String("content", content),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return content, nil
}

// Transcribe uploads the recording to the transcription endpoint
func (c *Client) Transcribe(ctx context.Context, audio nlu.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", errors.New("empty recording")
	}

	resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: "recording" + extensionFor(audio.MIMEType),
		Reader:   bytes.NewReader(audio.Data),
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// extensionFor picks the file name suffix the API uses to detect the format
func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	default:
		return ".wav"
	}
}
