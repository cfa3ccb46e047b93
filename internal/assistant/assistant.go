// Package assistant chains retrieval and completion calls into the two user operations:
// drafting a cover letter for one posting and analysing which skills a CV lacks for the
// postings that best match a target role.
package assistant

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/spigell/skill-gap/internal/ai"
	"github.com/spigell/skill-gap/internal/embedding"
	"github.com/spigell/skill-gap/internal/index"
	"github.com/spigell/skill-gap/internal/jobs"
	"github.com/spigell/skill-gap/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const keyPointsSeparator = "\n\n"

type Assistant struct {
	completer ai.Completer
	embedder  embedding.Embedder
	templates Templates
	logger    *zap.Logger
	workers   int
}

type Option func(*Assistant)

func WithLogger(l *zap.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithKeyPointWorkers lets up to n key point extractions run at once.
// The key points are still joined in rank order.
func WithKeyPointWorkers(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.workers = n
		}
	}
}

func New(completer ai.Completer, embedder embedding.Embedder, templates Templates, opts ...Option) (*Assistant, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if err := templates.Validate(); err != nil {
		return nil, err
	}

	a := &Assistant{
		completer: completer,
		embedder:  embedder,
		templates: templates,
		logger:    zap.NewNop(),
		workers:   1,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// GenerateCoverLetter issues exactly one completion.
func (a *Assistant) GenerateCoverLetter(ctx context.Context, posting jobs.Posting, cv string) (string, error) {
	text, err := a.templates.CoverLetter.Fill(map[string]string{
		PlaceholderJobTitle: posting.Title,
		PlaceholderCompany:  posting.Company,
		PlaceholderJobDesc:  posting.Description,
		PlaceholderLocation: posting.Location,
		PlaceholderCV:       cv,
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("generating cover letter",
		zap.String(logger.FieldTitle, posting.Title),
		zap.String(logger.FieldCompany, posting.Company),
	)

	return a.completer.Complete(ctx, text)
}

// Analysis is the outcome of AnalyzeMissingSkills. MissingSkills is the final text;
// the other fields are kept for display.
type Analysis struct {
	Title        string
	TitleDerived bool
	Ranked       []index.RetrievedItem
	KeyPoints    string
	// Synthesized is the gap analysis before the optional postprocess step.
	Synthesized   string
	MissingSkills string
	Postprocessed bool
}

// AnalyzeMissingSkills resolves the target title (deriving it from the CV when
// targetTitle is blank), retrieves the best matching postings, extracts key points
// for each of them and synthesizes the skills missing from the CV. Any error aborts
// the analysis and is returned as is.
func (a *Assistant) AnalyzeMissingSkills(ctx context.Context, postings []jobs.Posting, cv, targetTitle string) (*Analysis, error) {
	if len(postings) == 0 {
		return nil, &index.EmptyCorpusError{}
	}

	res := &Analysis{}

	title, derived, err := a.resolveTitle(ctx, cv, targetTitle)
	if err != nil {
		return nil, err
	}
	res.Title, res.TitleDerived = title, derived
	a.logger.Info("target title resolved", zap.String(logger.FieldTitle, title), zap.Bool("derived", derived))

	idx, err := index.BuildFromPostings(ctx, a.embedder, postings)
	if err != nil {
		return nil, err
	}
	for _, doc := range idx.Documents() {
		a.logger.Debug("posting indexed", logger.IndexedFields(doc.ID, doc.Posting.Title, doc.Posting.Company)...)
	}

	res.Ranked, err = idx.Search(ctx, title, index.DefaultTopK)
	if err != nil {
		return nil, err
	}
	a.logger.Info("postings retrieved", zap.Int("indexed", idx.Len()), zap.Int("retrieved", len(res.Ranked)))
	for rank, item := range res.Ranked {
		a.logger.Debug("ranked posting", logger.PostingFields(rank, item.DocumentID, item.Posting.Title, item.Posting.Company, item.Score)...)
	}

	res.KeyPoints, err = a.extractKeyPoints(ctx, res.Ranked)
	if err != nil {
		return nil, err
	}
	a.logger.Info("key points extracted", zap.Int("postings", len(res.Ranked)), zap.Int("workers", a.workers))

	text, err := a.templates.MissingSkills.Fill(map[string]string{
		PlaceholderCV:        cv,
		PlaceholderKeyPoints: res.KeyPoints,
	})
	if err != nil {
		return nil, err
	}
	res.Synthesized, err = a.completer.Complete(ctx, text)
	if err != nil {
		return nil, err
	}
	res.MissingSkills = res.Synthesized
	a.logger.Info("missing skills synthesized")

	if a.templates.Postprocess == nil {
		return res, nil
	}

	text, err = a.templates.Postprocess.Fill(map[string]string{
		PlaceholderMissingSkills: res.Synthesized,
	})
	if err != nil {
		return nil, err
	}
	res.MissingSkills, err = a.completer.Complete(ctx, text)
	if err != nil {
		return nil, err
	}
	res.Postprocessed = true
	a.logger.Info("missing skills postprocessed")

	return res, nil
}

func (a *Assistant) resolveTitle(ctx context.Context, cv, targetTitle string) (string, bool, error) {
	if strings.TrimSpace(targetTitle) != "" {
		return targetTitle, false, nil
	}

	text, err := a.templates.DreamJob.Fill(map[string]string{PlaceholderCV: cv})
	if err != nil {
		return "", false, err
	}

	title, err := a.completer.Complete(ctx, text)
	if err != nil {
		return "", false, err
	}
	if title == "" {
		a.logger.Warn("derived target title is empty, retrieval falls back to corpus order")
	}

	return title, true, nil
}

func (a *Assistant) extractKeyPoints(ctx context.Context, ranked []index.RetrievedItem) (string, error) {
	prompts := make([]string, len(ranked))
	for rank, item := range ranked {
		text, err := a.templates.KeyPoints.Fill(map[string]string{
			PlaceholderIndex:    strconv.Itoa(rank),
			PlaceholderJobTitle: item.Posting.Title,
			PlaceholderCompany:  item.Posting.Company,
			PlaceholderJobDesc:  item.Posting.Description,
			PlaceholderLocation: item.Posting.Location,
			PlaceholderScore:    strconv.FormatFloat(item.Score, 'f', 4, 64),
		})
		if err != nil {
			return "", err
		}
		prompts[rank] = text
	}

	results := make([]string, len(prompts))

	if a.workers <= 1 {
		for rank, text := range prompts {
			out, err := a.completer.Complete(ctx, text)
			if err != nil {
				return "", err
			}
			results[rank] = out
		}
		return strings.Join(results, keyPointsSeparator), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for rank, text := range prompts {
		g.Go(func() error {
			out, err := a.completer.Complete(gctx, text)
			if err != nil {
				return err
			}
			results[rank] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(results, keyPointsSeparator), nil
}
