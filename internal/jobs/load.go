package jobs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// aliases maps column names produced by older scrapes to Posting fields.
var aliases = map[string]string{
	"job_title":   FieldTitle,
	"name":        FieldTitle,
	"job_desc":    FieldDescription,
	"employer":    FieldCompany,
	"place":       FieldLocation,
	"title":       FieldTitle,
	"company":     FieldCompany,
	"description": FieldDescription,
	"location":    FieldLocation,
}

var requiredFields = []string{FieldTitle, FieldCompany, FieldDescription, FieldLocation}

// LoadAll loads every file in order and concatenates the postings.
func LoadAll(paths []string) (*Postings, error) {
	all := &Postings{}
	for _, path := range paths {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		all.Items = append(all.Items, loaded.Items...)
	}
	return all, nil
}

// Load reads postings from a YAML, JSON or CSV file. Every record must carry
// all four fields; an empty value is fine, an absent or null one is not.
func Load(path string) (*Postings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading postings file %q: %w", path, err)
	}

	var records []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		records, err = decodeYAML(data)
	case ".csv":
		records, err = decodeCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported postings file format: %q", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing postings file %q: %w", path, err)
	}

	postings, err := fromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("postings file %q: %w", path, err)
	}

	return postings, nil
}

func decodeYAML(data []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		record := make(map[string]any, len(header))
		for idx, column := range header {
			if idx < len(row) {
				record[column] = row[idx]
			}
		}
		records = append(records, record)
	}

	return records, nil
}

func fromRecords(records []map[string]any) (*Postings, error) {
	postings := &Postings{Items: make([]Posting, 0, len(records))}

	for idx, record := range records {
		normalized := normalizeKeys(record)
		for _, field := range requiredFields {
			if value, ok := normalized[field]; !ok || value == nil {
				return nil, &ValidationError{Index: idx, Field: field}
			}
		}

		var posting Posting
		cfg := &mapstructure.DecoderConfig{
			Result:           &posting,
			TagName:          "mapstructure",
			WeaklyTypedInput: true,
		}
		decoder, err := mapstructure.NewDecoder(cfg)
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(normalized); err != nil {
			return nil, fmt.Errorf("decoding posting #%d: %w", idx, err)
		}

		postings.Items = append(postings.Items, posting)
	}

	if err := postings.Validate(); err != nil {
		return nil, err
	}

	return postings, nil
}

func normalizeKeys(record map[string]any) map[string]any {
	normalized := make(map[string]any, len(record))
	for key, value := range record {
		lowered := strings.ToLower(strings.TrimSpace(key))
		canonical, ok := aliases[lowered]
		if !ok {
			continue
		}
		// The canonical column wins over an alias when a file carries both.
		if _, exists := normalized[canonical]; exists && lowered != canonical {
			continue
		}
		normalized[canonical] = value
	}
	return normalized
}
