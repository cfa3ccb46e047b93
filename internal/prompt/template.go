package prompt

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ConfigurationError reports a template that cannot be filled.
type ConfigurationError struct {
	Template string
	Missing  []string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("prompt template %q: no value for placeholders %s", e.Template, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("prompt template %q: %s", e.Template, e.Reason)
}

// Template is a text with named {{placeholders}}.
type Template struct {
	name         string
	text         string
	placeholders []string
}

// Parse builds a template. Unbalanced braces around a name are reported
// here rather than silently sent to the model.
func Parse(name, text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ConfigurationError{Template: name, Reason: "template is empty"}
	}

	stripped := placeholderPattern.ReplaceAllString(text, "")
	if strings.Contains(stripped, "{{") || strings.Contains(stripped, "}}") {
		return nil, &ConfigurationError{Template: name, Reason: "malformed placeholder"}
	}

	seen := make(map[string]struct{})
	var placeholders []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		placeholders = append(placeholders, match[1])
	}

	return &Template{name: name, text: text, placeholders: placeholders}, nil
}

// MustParse is Parse for templates known at compile time.
func MustParse(name, text string) *Template {
	t, err := Parse(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseFile reads a template from disk.
func ParseFile(name, path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template %q from %q: %w", name, path, err)
	}
	return Parse(name, string(data))
}

func (t *Template) Name() string {
	return t.name
}

// Placeholders returns the placeholder names in order of first appearance.
func (t *Template) Placeholders() []string {
	return append([]string(nil), t.placeholders...)
}

// Fill substitutes every placeholder. Extra values are ignored; a placeholder
// without a value is a ConfigurationError.
func (t *Template) Fill(values map[string]string) (string, error) {
	var missing []string
	for _, name := range t.placeholders {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &ConfigurationError{Template: t.name, Missing: missing}
	}

	// Single pass, so values that themselves contain {{...}} are not expanded.
	return placeholderPattern.ReplaceAllStringFunc(t.text, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return values[name]
	}), nil
}
