package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadYAMLWithAliases(t *testing.T) {
	postings, err := Load("testdata/postings.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if postings.Len() != 2 {
		t.Fatalf("expected 2 postings, got %d", postings.Len())
	}

	first := postings.Items[0]
	if first.Title != "Backend Engineer" || first.Company != "Acme" || first.Location != "Warsaw" {
		t.Fatalf("unexpected first posting: %+v", first)
	}

	second := postings.Items[1]
	if second.Title != "Data Engineer" {
		t.Fatalf("expected job_title alias to map to title, got %q", second.Title)
	}
	if second.Location != "Remote" {
		t.Fatalf("expected place alias to map to location, got %q", second.Location)
	}
	if !strings.Contains(second.Description, "Own the data warehouse.") {
		t.Fatalf("expected multi-line description to be kept, got %q", second.Description)
	}
}

func TestLoadCSVKeepsEmptyFields(t *testing.T) {
	postings, err := Load("testdata/postings.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if postings.Len() != 2 {
		t.Fatalf("expected 2 postings, got %d", postings.Len())
	}

	if postings.Items[0].Description != "React, TypeScript and a good eye for design" {
		t.Fatalf("unexpected description: %q", postings.Items[0].Description)
	}

	if postings.Items[1].Company != "" {
		t.Fatalf("expected empty company, got %q", postings.Items[1].Company)
	}
}

func TestLoadRejectsNullField(t *testing.T) {
	_, err := Load("testdata/missing_location.json")
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	if verr.Field != FieldLocation || verr.Index != 0 {
		t.Fatalf("unexpected validation error: %+v", verr)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadAllPreservesOrder(t *testing.T) {
	postings, err := LoadAll([]string{"testdata/postings.csv", "testdata/postings.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Frontend Engineer", "ML Engineer", "Backend Engineer", "Data Engineer"}
	got := postings.Titles()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestDumpToFileReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full is not available")
	}

	postings := &Postings{Items: []Posting{{Title: "Go Developer"}}}
	if err := postings.DumpToFile("/dev/full"); err == nil {
		t.Fatal("expected write error")
	}
}

func TestDumpToFileRoundTrip(t *testing.T) {
	original := &Postings{Items: []Posting{
		{Title: "Go Developer", Company: "Acme", Description: "Line one\nLine two", Location: ""},
	}}

	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := original.DumpToFile(path); err != nil {
		t.Fatalf("dump: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Len() != 1 || loaded.Items[0] != original.Items[0] {
		t.Fatalf("round trip mismatch: %+v", loaded.Items)
	}
}
