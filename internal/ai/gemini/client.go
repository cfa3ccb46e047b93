package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"

	defaultModel    = "gemini-2.5-flash"
	defaultLocation = "europe-central2"
)

// Config selects the Gemini API (APIKey) or Vertex AI (Project and Location).
type Config struct {
	APIKey          string
	Project         string
	Location        string
	Model           string
	Temperature     *float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models    modelsAPI
	modelName string
	config    *genai.GenerateContentConfig
	timeout   time.Duration
}

// ClientConfig builds the genai client configuration for either backend.
func ClientConfig(apiKey, project, location string) (*genai.ClientConfig, error) {
	apiKey = strings.TrimSpace(apiKey)
	project = strings.TrimSpace(project)

	switch {
	case apiKey != "":
		return &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		}, nil
	case project != "":
		if location = strings.TrimSpace(location); location == "" {
			location = defaultLocation
		}
		return &genai.ClientConfig{
			Project:  project,
			Location: location,
			Backend:  genai.BackendVertexAI,
		}, nil
	default:
		return nil, errors.New("gemini api key or vertex project is required")
	}
}

// NewGenerator creates a new Generator for the configured backend.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	clientCfg, err := ClientConfig(cfg.APIKey, cfg.Project, cfg.Location)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg), nil
}

func newGenerator(models modelsAPI, cfg Config) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	var genCfg *genai.GenerateContentConfig
	if cfg.Temperature != nil || cfg.MaxOutputTokens > 0 {
		genCfg = &genai.GenerateContentConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		}
	}

	return &Generator{
		models:    models,
		modelName: model,
		config:    genCfg,
		timeout:   cfg.Timeout,
	}
}

// Generate sends the prompt to Gemini and joins the textual parts of all candidates.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := builder.String()
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) Name() string { return ProviderName }

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
