package index

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/spigell/skill-gap/internal/jobs"
)

const (
	MetadataTitle    = "job_title"
	MetadataCompany  = "company"
	MetadataLocation = "location"

	metadataSeparator = "::"
	metadataTemplate  = "{key}=>{value}"
	textTemplate      = "Metadata: {metadata}\n-----\nContent: {content}"
)

type MetadataEntry struct {
	Key   string
	Value string
}

// Document is the embeddable form of a posting. The posting itself is kept as is,
// the serialized text is derived on demand and only used as embedding input.
type Document struct {
	ID      string
	Posting jobs.Posting
}

func NewDocument(p jobs.Posting) (Document, error) {
	if err := p.Validate(); err != nil {
		return Document{}, err
	}
	return Document{ID: uuid.NewString(), Posting: p}, nil
}

// NewDocuments builds one document per posting in input order.
func NewDocuments(postings []jobs.Posting) ([]Document, error) {
	docs := make([]Document, 0, len(postings))
	for idx, p := range postings {
		doc, err := NewDocument(p)
		if err != nil {
			var verr *jobs.ValidationError
			if errors.As(err, &verr) {
				verr.Index = idx
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (d Document) Content() string {
	return d.Posting.Description
}

func (d Document) Metadata() []MetadataEntry {
	return []MetadataEntry{
		{Key: MetadataTitle, Value: d.Posting.Title},
		{Key: MetadataCompany, Value: d.Posting.Company},
		{Key: MetadataLocation, Value: d.Posting.Location},
	}
}

// Text renders the document as
//
//	Metadata: job_title=>...::company=>...::location=>...
//	-----
//	Content: ...
func (d Document) Text() string {
	entries := d.Metadata()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		r := strings.NewReplacer("{key}", e.Key, "{value}", e.Value)
		parts = append(parts, r.Replace(metadataTemplate))
	}

	return strings.NewReplacer(
		"{metadata}", strings.Join(parts, metadataSeparator),
		"{content}", d.Content(),
	).Replace(textTemplate)
}
