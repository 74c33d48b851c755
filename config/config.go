package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int
	PublicBaseURL  string // Prefix for TwiML action URLs; relative paths when empty
	LogLevel       string
	LogFile        string // Rotated log file; stdout only when empty
	LogMode        string // "dev" for console output, JSON otherwise
	SessionBackend string // "memory" or "redis"
	RedisURL       string
	RedisPassword  string
	SessionTimeout time.Duration
	SweepInterval  time.Duration

	NLUProvider        string // "gemini" or "openai"
	GeminiAPIKey       string
	GeminiModel        string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	TranscriptionModel string
	ExtractionTimeout  time.Duration
	Timezone           *time.Location

	MaxReprompts      int
	TwilioVoice       string
	TwilioAccountSID  string // Used to authenticate recording downloads
	TwilioAuthToken   string
	MaxRecordingBytes int

	MonitorEnabled bool
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (*Config, error) {
	config := &Config{
		Port:               3000,
		LogLevel:           "info",
		SessionBackend:     "memory",
		RedisURL:           "localhost:6379",
		SessionTimeout:     30 * time.Minute,
		SweepInterval:      1 * time.Minute,
		NLUProvider:        "openai",
		GeminiModel:        "gemini-2.5-flash",
		OpenAIModel:        "gpt-4o",
		TranscriptionModel: "whisper-1",
		ExtractionTimeout:  8 * time.Second,
		MaxReprompts:       3,
		TwilioVoice:        "Polly.Joanna",
		MaxRecordingBytes:  5 * 1024 * 1024, // 5MB default
		MonitorEnabled:     true,
		AllowedOrigins:     []string{"*"},
	}

	tz, err := time.LoadLocation("America/Chicago")
	if err != nil {
		tz = time.UTC
	}
	config.Timezone = tz

	// Optional: PORT
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	config.PublicBaseURL = strings.TrimSuffix(getenv("PUBLIC_BASE_URL"), "/")

	if level := getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	config.LogFile = getenv("LOG_FILE")
	config.LogMode = getenv("LOG_MODE")

	// Optional: SESSION_BACKEND ("memory" or "redis")
	if backend := getenv("SESSION_BACKEND"); backend != "" {
		switch backend {
		case "memory", "redis":
			config.SessionBackend = backend
		default:
			return nil, fmt.Errorf("invalid SESSION_BACKEND: must be 'memory' or 'redis'")
		}
	}

	if redisURL := getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}
	config.RedisPassword = getenv("REDIS_PASSWORD")

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: SWEEP_INTERVAL (in seconds)
	if interval := getenv("SWEEP_INTERVAL"); interval != "" {
		s, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
		}
		config.SweepInterval = time.Duration(s) * time.Second
	}

	// Optional: NLU_PROVIDER ("gemini" or "openai")
	if provider := getenv("NLU_PROVIDER"); provider != "" {
		switch provider {
		case "gemini", "openai":
			config.NLUProvider = provider
		default:
			return nil, fmt.Errorf("invalid NLU_PROVIDER: must be 'gemini' or 'openai'")
		}
	}

	config.GeminiAPIKey = getenv("GEMINI_API_KEY")
	if model := getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}
	config.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	config.OpenAIBaseURL = getenv("OPENAI_BASE_URL")
	if model := getenv("OPENAI_MODEL"); model != "" {
		config.OpenAIModel = model
	}
	if model := getenv("TRANSCRIPTION_MODEL"); model != "" {
		config.TranscriptionModel = model
	}

	// Required: the key for the selected provider
	switch config.NLUProvider {
	case "gemini":
		if config.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	case "openai":
		if config.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	}

	// Optional: EXTRACTION_TIMEOUT (in seconds)
	if timeout := getenv("EXTRACTION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid EXTRACTION_TIMEOUT: %w", err)
		}
		if t <= 0 {
			return nil, fmt.Errorf("invalid EXTRACTION_TIMEOUT: must be positive")
		}
		config.ExtractionTimeout = time.Duration(t) * time.Second
	}

	if tzName := getenv("TIMEZONE"); tzName != "" {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		config.Timezone = loc
	}

	// Optional: MAX_REPROMPTS (0 disables escalation)
	if reprompts := getenv("MAX_REPROMPTS"); reprompts != "" {
		r, err := strconv.Atoi(reprompts)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_REPROMPTS: %w", err)
		}
		config.MaxReprompts = r
	}

	if voice := getenv("TWILIO_VOICE"); voice != "" {
		config.TwilioVoice = voice
	}
	config.TwilioAccountSID = getenv("TWILIO_ACCOUNT_SID")
	config.TwilioAuthToken = getenv("TWILIO_AUTH_TOKEN")

	// Optional: MAX_RECORDING_BYTES
	if size := getenv("MAX_RECORDING_BYTES"); size != "" {
		b, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_RECORDING_BYTES: %w", err)
		}
		config.MaxRecordingBytes = b
	}

	if monitor := getenv("MONITOR_ENABLED"); monitor != "" {
		m, err := strconv.ParseBool(monitor)
		if err != nil {
			return nil, fmt.Errorf("invalid MONITOR_ENABLED: %w", err)
		}
		config.MonitorEnabled = m
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	return config, nil
}
