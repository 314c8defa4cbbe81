package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by PLANTID_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const defaultSessionTTL = 30 * time.Minute

// Config is read once at startup from the environment (and .env, see cmd/root.go).
type Config struct {
	Provider     string
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string
	OpenAIURL    string
	OllamaURL    string

	CameraRear  int
	CameraFront int
	SessionTTL  time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:     strings.ToLower(strings.TrimSpace(os.Getenv("PLANTID_PROVIDER"))),
		Model:        strings.TrimSpace(os.Getenv("PLANTID_MODEL")),
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIURL:    strings.TrimSpace(os.Getenv("OPENAI_URL")),
		OllamaURL:    strings.TrimSpace(os.Getenv("OLLAMA_URL")),
		SessionTTL:   defaultSessionTTL,
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
	}

	switch cfg.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	var err error
	if cfg.CameraRear, err = intEnv("PLANTID_CAMERA_REAR", 0); err != nil {
		return nil, err
	}
	if cfg.CameraFront, err = intEnv("PLANTID_CAMERA_FRONT", cfg.CameraRear); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv("PLANTID_SESSION_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid PLANTID_SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}
