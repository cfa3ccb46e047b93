package jobs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	FieldTitle       = "title"
	FieldCompany     = "company"
	FieldDescription = "description"
	FieldLocation    = "location"
)

// Posting is a single job listing. It is never modified after ingestion.
type Posting struct {
	Title       string `yaml:"title" json:"title" mapstructure:"title"`
	Company     string `yaml:"company" json:"company" mapstructure:"company"`
	Description string `yaml:"description" json:"description" mapstructure:"description"`
	Location    string `yaml:"location" json:"location" mapstructure:"location"`
}

// ValidationError reports a posting that misses a required field or carries malformed text.
type ValidationError struct {
	// Index is the position of the posting in its input sequence, -1 when unknown.
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is missing"
	}
	if e.Index < 0 {
		return fmt.Sprintf("posting field %q %s", e.Field, reason)
	}
	return fmt.Sprintf("posting #%d: field %q %s", e.Index, e.Field, reason)
}

// Validate rejects a blank record and fields that are not valid UTF-8.
// Individual empty fields are accepted: the scraper falls back to "" when a page lacks them.
func (p *Posting) Validate() error {
	if p == nil {
		return &ValidationError{Index: -1, Field: FieldTitle}
	}

	for _, field := range p.fields() {
		if !utf8.ValidString(field.value) {
			return &ValidationError{Index: -1, Field: field.name, Reason: "is not valid utf-8"}
		}
	}

	if strings.TrimSpace(p.Title+p.Company+p.Description+p.Location) == "" {
		return &ValidationError{Index: -1, Field: FieldTitle, Reason: "is missing in a blank posting"}
	}

	return nil
}

type namedField struct {
	name  string
	value string
}

func (p *Posting) fields() []namedField {
	return []namedField{
		{name: FieldTitle, value: p.Title},
		{name: FieldCompany, value: p.Company},
		{name: FieldDescription, value: p.Description},
		{name: FieldLocation, value: p.Location},
	}
}

// Postings is an ordered posting collection.
type Postings struct {
	Items []Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

// Validate validates every posting and reports the first offender with its position.
func (p *Postings) Validate() error {
	for idx := range p.Items {
		if err := p.Items[idx].Validate(); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Index = idx
			}
			return err
		}
	}
	return nil
}

func (p *Postings) Titles() []string {
	titles := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		titles = append(titles, posting.Title)
	}
	return titles
}

// ReportByCompany groups posting titles and locations by company.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Company
		if key == "" {
			key = "(unknown company)"
		}
		report[key] = append(report[key], map[string]string{
			"title":    posting.Title,
			"location": posting.Location,
		})
	}
	return report
}

// DumpToFile writes postings as YAML so they can be loaded back with Load.
func (p *Postings) DumpToFile(path string) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(p.Items); err != nil {
		return err
	}
	return enc.Close()
}

// Retain keeps the postings for which keep returns true, preserving order, and
// returns the dropped ones.
func (p *Postings) Retain(keep func(Posting) bool) []Posting {
	var dropped []Posting
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if keep(posting) {
			kept = append(kept, posting)
			continue
		}
		dropped = append(dropped, posting)
	}
	p.Items = kept
	return dropped
}
