package filtering

import (
	"fmt"
	"strings"

	"github.com/spigell/skill-gap/internal/jobs"
	"go.uber.org/zap"
)

// Filter is a single step that narrows the posting corpus before an analysis.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(logger *zap.Logger, p *jobs.Postings) (*jobs.Postings, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

type Config struct {
	Dedupe           bool     `mapstructure:"dedupe"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	Locations        []string `mapstructure:"locations"`
	// Skip lists filter names to keep out of the run.
	Skip []string `mapstructure:"skip"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// toggle implements Disable and IsEnabled for the built-in filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type statusProvider interface {
	Status() Status
}

// Default returns the built-in steps in execution order.
func Default() []Filter {
	return []Filter{NewDedupe(), NewCompanies(), NewLocations()}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// It reports whether such a filter exists.
func DisableByName(steps []Filter, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Skip disables every filter named in names.
func Skip(steps []Filter, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !DisableByName(steps, name, "skipped") {
			return fmt.Errorf("unknown filter %q", name)
		}
	}
	return nil
}

// Run validates every step against cfg and then applies the enabled ones in order.
func Run(cfg *Config, logger *zap.Logger, steps []Filter, p *jobs.Postings) (*jobs.Postings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(logger, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		p = next
	}

	return p, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

func titles(postings []jobs.Posting) []string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.Title)
	}
	return out
}
