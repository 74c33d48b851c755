package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFrom(envFrom(map[string]string{"OPENAI_API_KEY": "sk-test"}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, "openai", cfg.NLUProvider)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 8*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 3, cfg.MaxReprompts)
	assert.Equal(t, "Polly.Joanna", cfg.TwilioVoice)
	assert.NotNil(t, cfg.Timezone)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := loadFrom(envFrom(map[string]string{
		"NLU_PROVIDER":       "gemini",
		"GEMINI_API_KEY":     "g-test",
		"PORT":               "8080",
		"PUBLIC_BASE_URL":    "https://voice.example.com/",
		"SESSION_BACKEND":    "redis",
		"SESSION_TIMEOUT":    "5",
		"SWEEP_INTERVAL":     "10",
		"EXTRACTION_TIMEOUT": "3",
		"MAX_REPROMPTS":      "2",
		"TIMEZONE":           "UTC",
		"MONITOR_ENABLED":    "false",
		"ALLOWED_ORIGINS":    "https://a.example,https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://voice.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
	assert.Equal(t, 3*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 2, cfg.MaxReprompts)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.False(t, cfg.MonitorEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing openai key":  {},
		"missing gemini key":  {"NLU_PROVIDER": "gemini"},
		"bad provider":        {"NLU_PROVIDER": "llama", "OPENAI_API_KEY": "x"},
		"bad backend":         {"SESSION_BACKEND": "disk", "OPENAI_API_KEY": "x"},
		"bad port":            {"PORT": "eighty", "OPENAI_API_KEY": "x"},
		"zero timeout":        {"EXTRACTION_TIMEOUT": "0", "OPENAI_API_KEY": "x"},
		"bad timezone":        {"TIMEZONE": "Mars/Olympus", "OPENAI_API_KEY": "x"},
		"bad monitor boolean": {"MONITOR_ENABLED": "sometimes", "OPENAI_API_KEY": "x"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadFrom(envFrom(env))
			assert.Error(t, err)
		})
	}
}
