package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/spigell/skill-gap/internal/embedding"
	"github.com/spigell/skill-gap/internal/jobs"
)

// DefaultTopK is the number of postings retrieved for a query.
const DefaultTopK = 10

var ErrEmptyCorpus = errors.New("empty corpus")

// EmptyCorpusError is returned when a search runs against an index without documents.
type EmptyCorpusError struct{}

func (e *EmptyCorpusError) Error() string {
	return "no postings to search: the corpus is empty"
}

func (e *EmptyCorpusError) Is(target error) bool {
	return target == ErrEmptyCorpus
}

// RetrievedItem is a posting recovered from the index together with its similarity score.
// DocumentID matches the ID of the indexed Document.
type RetrievedItem struct {
	DocumentID string
	Posting    jobs.Posting
	Score      float64
}

// Index is an immutable in-memory vector index. Build a new one to change its contents.
type Index struct {
	embedder  embedding.Embedder
	docs      []Document
	vectors   [][]float64
	dimension int
}

// Build embeds every document's text. Any embedding failure, including a vector
// with NaN or infinite components, fails the whole build.
func Build(ctx context.Context, embedder embedding.Embedder, docs []Document) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	idx := &Index{
		embedder: embedder,
		docs:     make([]Document, len(docs)),
		vectors:  make([][]float64, 0, len(docs)),
	}
	copy(idx.docs, docs)

	for i, doc := range docs {
		vec, err := embedder.Embed(ctx, doc.Text())
		if err != nil {
			return nil, fmt.Errorf("embed posting #%d (%q): %w", i, doc.Posting.Title, err)
		}
		if i == 0 {
			idx.dimension = len(vec)
		} else if len(vec) != idx.dimension {
			return nil, fmt.Errorf("embed posting #%d: dimension %d differs from %d", i, len(vec), idx.dimension)
		}
		if err := checkFinite(vec); err != nil {
			return nil, fmt.Errorf("embed posting #%d (%q): %w", i, doc.Posting.Title, err)
		}
		idx.vectors = append(idx.vectors, vec)
	}

	return idx, nil
}

// BuildFromPostings is NewDocuments followed by Build.
func BuildFromPostings(ctx context.Context, embedder embedding.Embedder, postings []jobs.Posting) (*Index, error) {
	docs, err := NewDocuments(postings)
	if err != nil {
		return nil, err
	}
	return Build(ctx, embedder, docs)
}

func (idx *Index) Len() int { return len(idx.docs) }

// Documents returns a copy of the indexed documents in insertion order.
func (idx *Index) Documents() []Document {
	out := make([]Document, len(idx.docs))
	copy(out, idx.docs)
	return out
}

// Search returns at most k items ordered by descending cosine similarity to query.
// Items with equal scores keep their insertion order.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]RetrievedItem, error) {
	if len(idx.docs) == 0 {
		return nil, &EmptyCorpusError{}
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	qvec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != idx.dimension {
		return nil, fmt.Errorf("query dimension %d differs from index dimension %d", len(qvec), idx.dimension)
	}
	if err := checkFinite(qvec); err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scores := make([]float64, len(idx.vectors))
	for i, vec := range idx.vectors {
		scores[i] = cosine(qvec, vec)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	items := make([]RetrievedItem, 0, k)
	for _, i := range order[:k] {
		items = append(items, RetrievedItem{
			DocumentID: idx.docs[i].ID,
			Posting:    idx.docs[i].Posting,
			Score:      scores[i],
		})
	}

	return items, nil
}

var ErrNonFiniteVector = errors.New("embedding contains NaN or infinite values")

func checkFinite(vec []float64) error {
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFiniteVector, i, v)
		}
	}
	return nil
}

// cosine returns 0 when either vector has zero norm.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	score := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// finite components can still overflow the sums
	if math.IsNaN(score) {
		return 0
	}
	return score
}
