package cmd

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-gap/internal/ai"
	"github.com/spigell/skill-gap/internal/ai/anthropic"
	"github.com/spigell/skill-gap/internal/ai/gemini"
	"github.com/spigell/skill-gap/internal/ai/openai"
	"github.com/spigell/skill-gap/internal/embedding"
	embgemini "github.com/spigell/skill-gap/internal/embedding/gemini"
	"github.com/spigell/skill-gap/internal/embedding/hashing"
	embopenai "github.com/spigell/skill-gap/internal/embedding/openai"
	"github.com/spigell/skill-gap/internal/secrets"
)

const (
	providerGemini    = "gemini"
	providerOpenAI    = "openai"
	providerAnthropic = "anthropic"
	providerHashing   = "hashing"
)

func newCompleter(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*ai.Client, error) {
	policy, err := ai.ParseFailurePolicy(cfg.OnFailure)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("completion provider configured",
		zap.String("provider", backend.Name()),
		zap.String("model", backend.Model()),
		zap.String("on_failure", string(policy)),
	)

	return ai.NewClient(backend, ai.Options{
		Policy:       policy,
		Logger:       logger,
		MaxLogLength: cfg.MaxLogLength,
	}), nil
}

func newBackend(ctx context.Context, cfg *AIConfig) (ai.Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = providerGemini
	}

	switch provider {
	case providerGemini:
		b := orEmpty(cfg.Gemini)
		key, err := optionalKey("gemini api key", b)
		if err != nil {
			return nil, err
		}
		if b.MaxTokens < 0 || b.MaxTokens > math.MaxInt32 {
			return nil, fmt.Errorf("gemini max-tokens %d is out of range [0, %d]", b.MaxTokens, math.MaxInt32)
		}
		gcfg := gemini.Config{
			APIKey:          key,
			Project:         b.Project,
			Location:        b.Location,
			Model:           b.Model,
			MaxOutputTokens: int32(b.MaxTokens),
			Timeout:         b.Timeout,
		}
		if b.Temperature != nil {
			t := float32(*b.Temperature)
			gcfg.Temperature = &t
		}
		return gemini.NewGenerator(ctx, gcfg)
	case providerOpenAI:
		b := orEmpty(cfg.OpenAI)
		key, err := optionalKey("openai api key", b)
		if err != nil {
			return nil, err
		}
		return openai.NewGenerator(openai.Config{
			APIKey:      key,
			BaseURL:     b.BaseURL,
			Model:       b.Model,
			Temperature: b.Temperature,
			MaxTokens:   b.MaxTokens,
			Timeout:     b.Timeout,
		})
	case providerAnthropic:
		b := orEmpty(cfg.Anthropic)
		key, err := secrets.Load(keySource("anthropic api key", b))
		if err != nil {
			return nil, err
		}
		return anthropic.NewGenerator(anthropic.Config{
			APIKey:      key,
			BaseURL:     b.BaseURL,
			Model:       b.Model,
			Temperature: b.Temperature,
			MaxTokens:   b.MaxTokens,
			Timeout:     b.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown ai provider %q (expected %s, %s or %s)", cfg.Provider, providerGemini, providerOpenAI, providerAnthropic)
	}
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, logger *zap.Logger) (embedding.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = providerHashing
	}

	logger.Info("embedding provider configured", zap.String("provider", provider))

	switch provider {
	case providerHashing:
		dimension := 0
		if cfg.Hashing != nil {
			dimension = cfg.Hashing.Dimension
		}
		e, err := hashing.New(dimension)
		if err != nil {
			return nil, err
		}
		logger.Debug("hashing embedder", zap.Int("dimension", e.Dimension()))
		return e, nil
	case providerGemini:
		b := orEmpty(cfg.Gemini)
		key, err := optionalKey("gemini api key", b)
		if err != nil {
			return nil, err
		}
		return embgemini.New(ctx, embgemini.Config{
			APIKey:   key,
			Project:  b.Project,
			Location: b.Location,
			Model:    b.Model,
			Timeout:  b.Timeout,
		})
	case providerOpenAI:
		b := orEmpty(cfg.OpenAI)
		key, err := optionalKey("openai api key", b)
		if err != nil {
			return nil, err
		}
		return embopenai.New(embopenai.Config{
			APIKey:  key,
			BaseURL: b.BaseURL,
			Model:   b.Model,
			Timeout: b.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (expected %s, %s or %s)", cfg.Provider, providerHashing, providerGemini, providerOpenAI)
	}
}

func orEmpty(b *BackendConfig) *BackendConfig {
	if b == nil {
		return &BackendConfig{}
	}
	return b
}

func keySource(name string, b *BackendConfig) secrets.Source {
	return secrets.Source{Name: name, Value: b.APIKey, File: b.APIKeyFile}
}

// optionalKey is for backends that can authenticate otherwise: Vertex AI via
// application default credentials, OpenAI-compatible local servers without a key.
func optionalKey(name string, b *BackendConfig) (string, error) {
	return secrets.LoadOptional(keySource(name, b))
}
