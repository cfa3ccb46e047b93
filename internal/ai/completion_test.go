package ai

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubBackend struct {
	prompts []string
	output  string
	err     error
}

func (s *stubBackend) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.output, s.err
}

func (s *stubBackend) Name() string  { return "stub" }
func (s *stubBackend) Model() string { return "stub-1" }

func TestCompleteTrimsPromptAndOutput(t *testing.T) {
	backend := &stubBackend{output: "\n  Senior Data Engineer \n"}
	client := NewClient(backend, Options{})

	got, err := client.Complete(context.Background(), "   what title?\n\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != "Senior Data Engineer" {
		t.Fatalf("unexpected output: %q", got)
	}

	if len(backend.prompts) != 1 || backend.prompts[0] != "what title?" {
		t.Fatalf("unexpected prompts: %q", backend.prompts)
	}
}

func TestCompleteWrapsBackendError(t *testing.T) {
	cause := errors.New("quota exceeded")
	client := NewClient(&stubBackend{err: cause}, Options{})

	_, err := client.Complete(context.Background(), "prompt")

	var cerr *CompletionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if cerr.Provider != "stub" || cerr.Model != "stub-1" {
		t.Fatalf("unexpected error fields: %+v", cerr)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped")
	}
}

func TestCompleteDegradeReturnsEmpty(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	client := NewClient(&stubBackend{err: errors.New("boom")}, Options{
		Policy: FailurePolicyDegrade,
		Logger: zap.New(core),
	})

	got, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["ai_provider"] != "stub" {
		t.Fatalf("expected provider field, got %v", entries[0].ContextMap())
	}
}

func TestCompleteTracesAtDebug(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	client := NewClient(&stubBackend{output: "a long answer"}, Options{
		Logger:       zap.New(core),
		MaxLogLength: 6,
	})

	if _, err := client.Complete(context.Background(), "a long question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected request and response entries, got %d", len(entries))
	}

	if got := entries[0].ContextMap()["prompt_preview"]; got != "a long..." {
		t.Fatalf("unexpected prompt preview: %v", got)
	}
	if got := entries[1].ContextMap()["response_preview"]; got != "a long..." {
		t.Fatalf("unexpected response preview: %v", got)
	}
	if got := entries[1].ContextMap()["response_length"]; got != int64(13) {
		t.Fatalf("unexpected response length: %v", got)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{in: "", want: FailurePolicyFail},
		{in: "fail", want: FailurePolicyFail},
		{in: " Degrade ", want: FailurePolicyDegrade},
		{in: "retry", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFailurePolicy(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %q, got %q (%v)", tt.want, got, err)
			}
		})
	}
}
