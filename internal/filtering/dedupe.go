package filtering

import (
	"github.com/spigell/skill-gap/internal/jobs"
	"go.uber.org/zap"
)

type dedupeFilter struct {
	toggle
}

// NewDedupe drops postings identical to an earlier one, which happens when the
// same listing is scraped from several search pages.
func NewDedupe() Filter {
	return &dedupeFilter{}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Validate(cfg *Config) error {
	if cfg == nil || !cfg.Dedupe {
		f.Disable("disabled in config")
	}
	return nil
}

func (f *dedupeFilter) Apply(logger *zap.Logger, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()

	seen := make(map[jobs.Posting]struct{}, initial)
	dropped := p.Retain(func(posting jobs.Posting) bool {
		if _, ok := seen[posting]; ok {
			return false
		}
		seen[posting] = struct{}{}
		return true
	})

	if len(dropped) > 0 {
		logger.Info("dropping duplicated postings",
			zap.Strings("duplicated_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *dedupeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
