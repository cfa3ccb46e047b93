package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/skill-gap/internal/ai"
	"github.com/spigell/skill-gap/internal/embedding"
	"github.com/spigell/skill-gap/internal/embedding/hashing"
	"github.com/spigell/skill-gap/internal/index"
	"github.com/spigell/skill-gap/internal/jobs"
	"github.com/spigell/skill-gap/internal/prompt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCompleter struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (s *stubCompleter) Complete(_ context.Context, p string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
	return s.respond(p)
}

func (s *stubCompleter) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// echo answers every prompt kind with a recognizable output.
func echo(p string) (string, error) {
	switch {
	case strings.HasPrefix(p, "DREAM"):
		return "Data Engineer", nil
	case strings.HasPrefix(p, "KP"):
		fields := strings.Fields(p)
		return "marker-" + strings.Join(fields[2:len(fields)-1], " "), nil
	case strings.HasPrefix(p, "SKILLS"):
		return "missing: Spark", nil
	case strings.HasPrefix(p, "POST"):
		return "plan: learn Spark", nil
	case strings.HasPrefix(p, "COVER"):
		return "Dear hiring team", nil
	}
	return "", fmt.Errorf("unexpected prompt %q", p)
}

func testTemplates(t *testing.T) Templates {
	t.Helper()
	return Templates{
		CoverLetter:   prompt.MustParse("cover_letter", "COVER {{job_title}}|{{company}}|{{job_desc}}|{{location}}|{{cv}}"),
		DreamJob:      prompt.MustParse("dream_job", "DREAM {{cv}}"),
		KeyPoints:     prompt.MustParse("key_points", "KP {{index}} {{job_title}} {{score}}"),
		MissingSkills: prompt.MustParse("missing_skills", "SKILLS {{key_points}}\nCV {{cv}}"),
	}
}

// scoredEmbedder gives each titled posting a cosine of exactly scores[title] against any query.
func scoredEmbedder(scores map[string]float64) embedding.Func {
	return func(_ context.Context, text string) ([]float64, error) {
		for title, s := range scores {
			if strings.Contains(text, "job_title=>"+title+"::") {
				return []float64{s, math.Sqrt(1 - s*s)}, nil
			}
		}
		return []float64{1, 0}, nil
	}
}

func scenarioPostings() []jobs.Posting {
	return []jobs.Posting{
		{Title: "Backend Engineer", Company: "Acme", Description: "Go services, REST APIs, PostgreSQL", Location: "Warsaw"},
		{Title: "Data Engineer", Company: "Globex", Description: "Build data pipelines and own the data warehouse", Location: "Remote"},
		{Title: "Frontend Engineer", Company: "Initech", Description: "React, TypeScript, accessibility", Location: "Berlin"},
	}
}

func newAssistant(t *testing.T, c ai.Completer, e embedding.Embedder, tmpl Templates, opts ...Option) *Assistant {
	t.Helper()
	a, err := New(c, e, tmpl, opts...)
	require.NoError(t, err)
	return a
}

func TestGenerateCoverLetter(t *testing.T) {
	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(32)
	a := newAssistant(t, c, emb, testTemplates(t))

	got, err := a.GenerateCoverLetter(context.Background(), scenarioPostings()[0], "my cv")
	require.NoError(t, err)

	require.Equal(t, "Dear hiring team", got)
	require.Equal(t, []string{"COVER Backend Engineer|Acme|Go services, REST APIs, PostgreSQL|Warsaw|my cv"}, c.prompts)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	c := &stubCompleter{respond: echo}
	emb, err := hashing.New(hashing.DefaultDimension)
	require.NoError(t, err)
	a := newAssistant(t, c, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "Python, SQL", "Data Engineer")
	require.NoError(t, err)

	require.Equal(t, 0, c.count("DREAM"))
	require.Equal(t, 3, c.count("KP"))
	require.Equal(t, 1, c.count("SKILLS"))
	require.Len(t, c.prompts, 4)

	require.Equal(t, "Data Engineer", res.Title)
	require.False(t, res.TitleDerived)
	require.Len(t, res.Ranked, 3)
	require.Equal(t, "Data Engineer", res.Ranked[0].Posting.Title)

	// key point prompts were issued in rank order
	for i, item := range res.Ranked {
		require.True(t, strings.HasPrefix(c.prompts[i], fmt.Sprintf("KP %d %s ", i, item.Posting.Title)), c.prompts[i])
	}

	require.Equal(t, "missing: Spark", res.MissingSkills)
	require.False(t, res.Postprocessed)
}

func TestAnalyzeLogsDocumentIDs(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(64)
	a := newAssistant(t, c, emb, testTemplates(t), WithLogger(zap.New(core)))

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "cv", "Data Engineer")
	require.NoError(t, err)

	indexed := observed.FilterMessage("posting indexed").All()
	require.Len(t, indexed, 3)
	ids := map[string]bool{}
	for _, entry := range indexed {
		id, _ := entry.ContextMap()["document_id"].(string)
		require.NotEmpty(t, id)
		ids[id] = true
	}

	ranked := observed.FilterMessage("ranked posting").All()
	require.Len(t, ranked, len(res.Ranked))
	for i, entry := range ranked {
		require.Equal(t, res.Ranked[i].DocumentID, entry.ContextMap()["document_id"])
		require.True(t, ids[res.Ranked[i].DocumentID])
	}
}

func TestAnalyzeDerivesTitleWhenMissing(t *testing.T) {
	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(hashing.DefaultDimension)
	a := newAssistant(t, c, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "Python, SQL", "  ")
	require.NoError(t, err)

	require.Len(t, c.prompts, 5)
	require.Equal(t, "DREAM Python, SQL", c.prompts[0])
	require.Equal(t, "Data Engineer", res.Title)
	require.True(t, res.TitleDerived)
}

func TestAnalyzeKeepsRankOrderInKeyPoints(t *testing.T) {
	scores := map[string]float64{"A": 0.9, "B": 0.7, "C": 0.5}
	postings := []jobs.Posting{{Title: "C"}, {Title: "A"}, {Title: "B"}}

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			c := &stubCompleter{respond: func(p string) (string, error) {
				// later ranks finish first when running concurrently
				if strings.HasPrefix(p, "KP 0 ") {
					time.Sleep(30 * time.Millisecond)
				}
				return echo(p)
			}}
			a := newAssistant(t, c, scoredEmbedder(scores), testTemplates(t), WithKeyPointWorkers(workers))

			res, err := a.AnalyzeMissingSkills(context.Background(), postings, "cv", "Target")
			require.NoError(t, err)

			require.Len(t, res.Ranked, 3)
			require.InDelta(t, 0.9, res.Ranked[0].Score, 1e-9)
			require.InDelta(t, 0.7, res.Ranked[1].Score, 1e-9)
			require.InDelta(t, 0.5, res.Ranked[2].Score, 1e-9)

			require.Equal(t, "marker-A\n\nmarker-B\n\nmarker-C", res.KeyPoints)

			synthesis := c.prompts[len(c.prompts)-1]
			require.Equal(t, "SKILLS marker-A\n\nmarker-B\n\nmarker-C\nCV cv", synthesis)
		})
	}
}

func TestAnalyzeRetrievesAtMostTen(t *testing.T) {
	var postings []jobs.Posting
	for i := 0; i < 12; i++ {
		postings = append(postings, jobs.Posting{Title: fmt.Sprintf("Engineer %d", i), Description: "Go"})
	}

	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(64)
	a := newAssistant(t, c, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), postings, "cv", "Engineer")
	require.NoError(t, err)

	require.Len(t, res.Ranked, index.DefaultTopK)
	require.Equal(t, index.DefaultTopK, c.count("KP"))
}

func TestAnalyzeEmptyCorpus(t *testing.T) {
	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(32)
	a := newAssistant(t, c, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), nil, "cv", "")

	require.ErrorIs(t, err, index.ErrEmptyCorpus)
	require.Nil(t, res)
	require.Empty(t, c.prompts)
}

func TestAnalyzeAbortsOnCompletionError(t *testing.T) {
	failure := &ai.CompletionError{Provider: "stub", Err: errors.New("quota")}
	c := &stubCompleter{respond: func(p string) (string, error) {
		if strings.HasPrefix(p, "KP 1 ") {
			return "", failure
		}
		return echo(p)
	}}
	emb, _ := hashing.New(64)
	a := newAssistant(t, c, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "cv", "Data Engineer")

	require.Nil(t, res)
	var cerr *ai.CompletionError
	require.ErrorAs(t, err, &cerr)
	require.Same(t, failure, cerr)
	require.Equal(t, 2, c.count("KP"))
	require.Equal(t, 0, c.count("SKILLS"))
}

type flakyBackend struct{}

func (flakyBackend) Generate(_ context.Context, p string) (string, error) {
	if strings.HasPrefix(p, "KP") {
		return "", errors.New("unavailable")
	}
	return echo(p)
}

func (flakyBackend) Name() string  { return "flaky" }
func (flakyBackend) Model() string { return "v0" }

func TestAnalyzeDegradedMode(t *testing.T) {
	client := ai.NewClient(flakyBackend{}, ai.Options{Policy: ai.FailurePolicyDegrade})
	emb, _ := hashing.New(64)
	a := newAssistant(t, client, emb, testTemplates(t))

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "cv", "Data Engineer")
	require.NoError(t, err)

	require.Equal(t, "\n\n\n\n", res.KeyPoints)
	require.Equal(t, "missing: Spark", res.MissingSkills)
}

func TestAnalyzePostprocess(t *testing.T) {
	tmpl := testTemplates(t)
	tmpl.Postprocess = prompt.MustParse("postprocess", "POST {{missing_skills}}")

	c := &stubCompleter{respond: echo}
	emb, _ := hashing.New(64)
	a := newAssistant(t, c, emb, tmpl)

	res, err := a.AnalyzeMissingSkills(context.Background(), scenarioPostings(), "cv", "Data Engineer")
	require.NoError(t, err)

	require.Len(t, c.prompts, 5)
	require.Equal(t, "POST missing: Spark", c.prompts[4])
	require.Equal(t, "missing: Spark", res.Synthesized)
	require.Equal(t, "plan: learn Spark", res.MissingSkills)
	require.True(t, res.Postprocessed)
}

func TestNewValidatesTemplates(t *testing.T) {
	emb, _ := hashing.New(32)
	c := &stubCompleter{respond: echo}

	tmpl := testTemplates(t)
	tmpl.KeyPoints = prompt.MustParse("key_points", "{{job_title}} needs {{salary}}")

	_, err := New(c, emb, tmpl)
	var cerr *prompt.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, []string{"salary"}, cerr.Missing)

	tmpl = testTemplates(t)
	tmpl.DreamJob = nil
	_, err = New(c, emb, tmpl)
	require.ErrorAs(t, err, &cerr)

	_, err = New(nil, emb, testTemplates(t))
	require.Error(t, err)
}

func TestDefaultTemplates(t *testing.T) {
	tmpl, err := DefaultTemplates()
	require.NoError(t, err)
	require.Nil(t, tmpl.Postprocess)
	require.ElementsMatch(t, []string{PlaceholderCV, PlaceholderKeyPoints}, tmpl.MissingSkills.Placeholders())

	tmpl, err = LoadTemplates(TemplateFiles{EnablePostprocess: true})
	require.NoError(t, err)
	require.NotNil(t, tmpl.Postprocess)
}
