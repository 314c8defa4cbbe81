package cmd

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/camera/webcam"
	"github.com/lehigh-university-libraries/plantid/internal/config"
	"github.com/lehigh-university-libraries/plantid/internal/gemini"
	"github.com/lehigh-university-libraries/plantid/internal/identification"
	"github.com/lehigh-university-libraries/plantid/internal/ollama"
	"github.com/lehigh-university-libraries/plantid/internal/openai"
	"github.com/lehigh-university-libraries/plantid/internal/providers"
)

// newIdentifier builds the single inference client for the process.
// The returned close func must run at shutdown.
func newIdentifier(ctx context.Context, cfg *config.Config) (*identification.Service, func() error, error) {
	noop := func() error { return nil }

	var provider providers.Provider
	closeFn := noop
	model := cfg.Model

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := gemini.New(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, noop, err
		}
		provider, closeFn = g, g.Close
		if model == "" {
			model = gemini.DefaultModel
		}
	case config.ProviderOpenAI:
		o, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIURL)
		if err != nil {
			return nil, noop, err
		}
		provider = o
		if model == "" {
			model = openai.DefaultModel
		}
	case config.ProviderOllama:
		provider = ollama.New(cfg.OllamaURL)
		if model == "" {
			model = ollama.DefaultModel
		}
	default:
		return nil, noop, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return identification.NewService(provider, cfg.Provider, model), closeFn, nil
}

func newCameraDevice(cfg *config.Config) camera.Device {
	return webcam.New(cfg.CameraRear, cfg.CameraFront)
}
