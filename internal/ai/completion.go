package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/skill-gap/internal/logger"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Backend is a concrete language model API.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
	Model() string
}

// CompletionError wraps any failure reported by a backend.
type CompletionError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CompletionError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s (%s) completion failed: %v", e.Provider, e.Model, e.Err)
	}
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// FailurePolicy decides what Complete returns when the backend fails.
type FailurePolicy string

const (
	// FailurePolicyFail returns a *CompletionError to the caller.
	FailurePolicyFail FailurePolicy = "fail"
	// FailurePolicyDegrade logs the failure and yields an empty completion.
	FailurePolicyDegrade FailurePolicy = "degrade"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailurePolicyFail, nil
	case FailurePolicyFail, FailurePolicyDegrade:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (expected %q or %q)", s, FailurePolicyFail, FailurePolicyDegrade)
	}
}

type Options struct {
	Policy       FailurePolicy
	Logger       *zap.Logger
	MaxLogLength int
}

// Client is the completion provider used by the assistant. It trims the prompt
// before sending and the output before returning, and traces both at debug level.
type Client struct {
	backend   Backend
	policy    FailurePolicy
	logger    *zap.Logger
	maxLogLen int
}

func NewClient(backend Backend, opts Options) *Client {
	if opts.Policy == "" {
		opts.Policy = FailurePolicyFail
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Client{
		backend:   backend,
		policy:    opts.Policy,
		logger:    logger.WithCommonFields(opts.Logger, backend.Name(), backend.Model()),
		maxLogLen: opts.MaxLogLength,
	}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)

	c.logger.Debug("completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.backend.Generate(ctx, prompt)
	if err != nil {
		cerr := &CompletionError{Provider: c.backend.Name(), Model: c.backend.Model(), Err: err}
		if c.policy == FailurePolicyDegrade {
			c.logger.Warn("completion failed, continuing with empty output", zap.Error(cerr))
			return "", nil
		}
		return "", cerr
	}

	output := strings.TrimSpace(raw)

	c.logger.Debug("completion response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", logger.TruncateForLog(output, c.maxLogLen)),
	)

	return output, nil
}
