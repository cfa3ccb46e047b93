package assistant

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spigell/skill-gap/internal/prompt"
)

const (
	PlaceholderIndex         = "index"
	PlaceholderJobTitle      = "job_title"
	PlaceholderCompany       = "company"
	PlaceholderJobDesc       = "job_desc"
	PlaceholderLocation      = "location"
	PlaceholderScore         = "score"
	PlaceholderCV            = "cv"
	PlaceholderKeyPoints     = "key_points"
	PlaceholderMissingSkills = "missing_skills"
)

const (
	templateCoverLetter   = "cover_letter"
	templateDreamJob      = "dream_job"
	templateKeyPoints     = "key_points"
	templateMissingSkills = "missing_skills"
	templatePostprocess   = "postprocess"
)

//go:embed prompts/*.md
var defaultPrompts embed.FS

// Templates holds the prompts used by the assistant. Postprocess is optional.
type Templates struct {
	CoverLetter   *prompt.Template
	DreamJob      *prompt.Template
	KeyPoints     *prompt.Template
	MissingSkills *prompt.Template
	Postprocess   *prompt.Template
}

// TemplateFiles lists prompt files that replace the built-in prompts. Empty paths keep
// the defaults. The postprocess step runs when Postprocess is set or EnablePostprocess is true.
type TemplateFiles struct {
	CoverLetter       string `mapstructure:"cover-letter"`
	DreamJob          string `mapstructure:"dream-job"`
	KeyPoints         string `mapstructure:"key-points"`
	MissingSkills     string `mapstructure:"missing-skills"`
	Postprocess       string `mapstructure:"postprocess"`
	EnablePostprocess bool   `mapstructure:"enable-postprocess"`
}

// allowedPlaceholders lists what each template may reference.
var allowedPlaceholders = map[string][]string{
	templateCoverLetter:   {PlaceholderJobTitle, PlaceholderCompany, PlaceholderJobDesc, PlaceholderLocation, PlaceholderCV},
	templateDreamJob:      {PlaceholderCV},
	templateKeyPoints:     {PlaceholderIndex, PlaceholderJobTitle, PlaceholderCompany, PlaceholderJobDesc, PlaceholderLocation, PlaceholderScore},
	templateMissingSkills: {PlaceholderCV, PlaceholderKeyPoints},
	templatePostprocess:   {PlaceholderMissingSkills},
}

// DefaultTemplates returns the built-in prompts without the postprocess step.
func DefaultTemplates() (Templates, error) {
	return LoadTemplates(TemplateFiles{})
}

func LoadTemplates(files TemplateFiles) (Templates, error) {
	var (
		t   Templates
		err error
	)

	if t.CoverLetter, err = loadTemplate(templateCoverLetter, files.CoverLetter); err != nil {
		return Templates{}, err
	}
	if t.DreamJob, err = loadTemplate(templateDreamJob, files.DreamJob); err != nil {
		return Templates{}, err
	}
	if t.KeyPoints, err = loadTemplate(templateKeyPoints, files.KeyPoints); err != nil {
		return Templates{}, err
	}
	if t.MissingSkills, err = loadTemplate(templateMissingSkills, files.MissingSkills); err != nil {
		return Templates{}, err
	}
	if files.EnablePostprocess || strings.TrimSpace(files.Postprocess) != "" {
		if t.Postprocess, err = loadTemplate(templatePostprocess, files.Postprocess); err != nil {
			return Templates{}, err
		}
	}

	return t, t.Validate()
}

func loadTemplate(name, path string) (*prompt.Template, error) {
	if path = strings.TrimSpace(path); path != "" {
		return prompt.ParseFile(name, path)
	}

	data, err := defaultPrompts.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("read built-in prompt %s: %w", name, err)
	}
	return prompt.Parse(name, string(data))
}

// Validate checks that the required templates are present and reference only
// placeholders the assistant can fill.
func (t Templates) Validate() error {
	required := []struct {
		name string
		tmpl *prompt.Template
	}{
		{templateCoverLetter, t.CoverLetter},
		{templateDreamJob, t.DreamJob},
		{templateKeyPoints, t.KeyPoints},
		{templateMissingSkills, t.MissingSkills},
	}

	var errs []error
	for _, r := range required {
		if r.tmpl == nil {
			errs = append(errs, &prompt.ConfigurationError{Template: r.name, Reason: "is not configured"})
			continue
		}
		errs = append(errs, checkPlaceholders(r.name, r.tmpl))
	}
	if t.Postprocess != nil {
		errs = append(errs, checkPlaceholders(templatePostprocess, t.Postprocess))
	}

	return errors.Join(errs...)
}

func checkPlaceholders(name string, tmpl *prompt.Template) error {
	var unknown []string
	for _, p := range tmpl.Placeholders() {
		if !slices.Contains(allowedPlaceholders[name], p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &prompt.ConfigurationError{Template: tmpl.Name(), Missing: unknown}
}
