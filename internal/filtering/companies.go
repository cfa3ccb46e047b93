package filtering

import (
	"strings"

	"github.com/spigell/skill-gap/internal/jobs"
	"go.uber.org/zap"
)

type companiesFilter struct {
	toggle
	companies map[string]struct{}
	names     []string
}

// NewCompanies creates a filter that removes postings of the companies listed in the config.
// Company names are compared case-insensitively.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.ExcludeCompanies {
		key := normalize(name)
		if key == "" {
			continue
		}
		f.companies[key] = struct{}{}
		f.names = append(f.names, strings.TrimSpace(name))
	}
	return nil
}

func (f *companiesFilter) Apply(logger *zap.Logger, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	dropped := p.Retain(func(posting jobs.Posting) bool {
		_, excluded := f.companies[normalize(posting.Company)]
		return !excluded
	})

	if len(dropped) > 0 {
		logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
