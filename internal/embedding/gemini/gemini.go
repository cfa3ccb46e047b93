package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	aigemini "github.com/spigell/skill-gap/internal/ai/gemini"
	"google.golang.org/genai"
)

const defaultModel = "text-embedding-004"

type Config struct {
	APIKey   string
	Project  string
	Location string
	Model    string
	Timeout  time.Duration
}

type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces embeddings through the Gemini or Vertex AI embedding models.
type Embedder struct {
	models  embedAPI
	model   string
	timeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Embedder, error) {
	clientCfg, err := aigemini.ClientConfig(cfg.APIKey, cfg.Project, cfg.Location)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg), nil
}

func newEmbedder(models embedAPI, cfg Config) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	return &Embedder{models: models, model: model, timeout: cfg.Timeout}
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini embed content: no embedding returned")
	}

	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}

	return vec, nil
}
