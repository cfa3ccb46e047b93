package filtering

import (
	"strings"

	"github.com/spigell/skill-gap/internal/jobs"
	"go.uber.org/zap"
)

type locationsFilter struct {
	toggle
	locations []string
}

// NewLocations keeps postings whose location contains one of the configured
// substrings. Postings without a location are kept, the scraper leaves it empty
// when the page does not show one.
func NewLocations() Filter {
	return &locationsFilter{}
}

func (f *locationsFilter) Name() string { return "locations" }

func (f *locationsFilter) Validate(cfg *Config) error {
	f.locations = nil
	if cfg == nil {
		return nil
	}
	for _, loc := range cfg.Locations {
		if loc = normalize(loc); loc != "" {
			f.locations = append(f.locations, loc)
		}
	}
	return nil
}

func (f *locationsFilter) Apply(logger *zap.Logger, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.locations) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	dropped := p.Retain(func(posting jobs.Posting) bool {
		location := normalize(posting.Location)
		if location == "" {
			return true
		}
		for _, want := range f.locations {
			if strings.Contains(location, want) {
				return true
			}
		}
		return false
	})

	if len(dropped) > 0 {
		logger.Info("excluding postings by location",
			zap.Strings("locations", f.locations),
			zap.Strings("excluded_postings", titles(dropped)),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *locationsFilter) Status() Status {
	details := map[string]string{}
	if len(f.locations) > 0 {
		details["locations"] = strings.Join(f.locations, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
