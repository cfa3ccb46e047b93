package filtering

import (
	"errors"
	"testing"

	"github.com/spigell/skill-gap/internal/jobs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func corpus() *jobs.Postings {
	return &jobs.Postings{Items: []jobs.Posting{
		{Title: "Backend Engineer", Company: "Acme", Location: "Warsaw, Poland"},
		{Title: "Data Engineer", Company: "Globex", Location: "Remote"},
		{Title: "Backend Engineer", Company: "Acme", Location: "Warsaw, Poland"},
		{Title: "Frontend Engineer", Company: "INITECH", Location: "Berlin"},
		{Title: "SRE", Company: "Hooli", Location: ""},
	}}
}

func titlesOf(p *jobs.Postings) []string {
	return p.Titles()
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	cfg := &Config{
		Dedupe:           true,
		ExcludeCompanies: []string{" initech "},
		Locations:        []string{"warsaw", "Remote"},
	}

	got, err := Run(cfg, zap.New(core), Default(), corpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Backend Engineer", "Data Engineer", "SRE"}
	if !equal(titlesOf(got), want) {
		t.Fatalf("expected %v, got %v", want, titlesOf(got))
	}

	steps := observed.FilterMessage("filter step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(steps))
	}

	expected := []struct {
		name    string
		dropped int64
		left    int64
	}{
		{"dedupe", 1, 4},
		{"companies", 1, 3},
		{"locations", 0, 3},
	}
	for i, e := range expected {
		ctx := steps[i].ContextMap()
		if ctx["name"] != e.name || ctx["dropped"] != e.dropped || ctx["left"] != e.left {
			t.Fatalf("unexpected step %d: %v", i, ctx)
		}
	}
}

func TestDedupeDisabledByDefault(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	got, err := Run(&Config{}, zap.New(core), Default(), corpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Len() != 5 {
		t.Fatalf("expected all postings kept, got %d", got.Len())
	}

	if observed.FilterMessage("filter disabled").Len() != 1 {
		t.Fatal("expected dedupe to be reported as disabled")
	}
}

func TestLocationsDropsUnmatched(t *testing.T) {
	got, err := Run(&Config{Locations: []string{"berlin"}}, nil, []Filter{NewLocations()}, corpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Frontend Engineer", "SRE"}
	if !equal(titlesOf(got), want) {
		t.Fatalf("expected %v, got %v", want, titlesOf(got))
	}
}

type failingFilter struct{ validateErr, applyErr error }

func (f *failingFilter) Name() string           { return "failing" }
func (f *failingFilter) Disable(string)         {}
func (f *failingFilter) IsEnabled() bool        { return true }
func (f *failingFilter) Validate(*Config) error { return f.validateErr }

func (f *failingFilter) Apply(_ *zap.Logger, p *jobs.Postings) (*jobs.Postings, Step, error) {
	return p, Step{}, f.applyErr
}

func TestRunPropagatesErrors(t *testing.T) {
	cause := errors.New("boom")

	if _, err := Run(nil, nil, []Filter{&failingFilter{validateErr: cause}}, corpus()); !errors.Is(err, cause) {
		t.Fatalf("expected validate error, got %v", err)
	}
	if _, err := Run(nil, nil, []Filter{&failingFilter{applyErr: cause}}, corpus()); !errors.Is(err, cause) {
		t.Fatalf("expected apply error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	steps := Default()
	if _, err := Run(&Config{ExcludeCompanies: []string{"Acme"}}, nil, steps, corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	DisableByName(steps, "locations", "not needed")

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Enabled {
		t.Fatal("expected dedupe disabled")
	}
	if statuses[1].Details["companies"] != "Acme" {
		t.Fatalf("unexpected companies status: %+v", statuses[1])
	}
	if statuses[2].Enabled || statuses[2].Reason != "not needed" {
		t.Fatalf("unexpected locations status: %+v", statuses[2])
	}
}

func TestSkip(t *testing.T) {
	steps := Default()
	if err := Skip(steps, []string{"companies", " "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Run(&Config{ExcludeCompanies: []string{"Acme"}}, nil, steps, corpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != corpus().Len() {
		t.Fatalf("expected companies filter skipped, got %v", got.Titles())
	}

	statuses := Describe(steps)
	if statuses[1].Enabled || statuses[1].Reason != "skipped" {
		t.Fatalf("unexpected companies status: %+v", statuses[1])
	}

	if err := Skip(Default(), []string{"salary"}); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}
