package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/skill-gap/internal/assistant"
	"github.com/spigell/skill-gap/internal/filtering"
	"github.com/spigell/skill-gap/internal/jobs"
)

func readCV(config *Config) (string, error) {
	path := strings.TrimSpace(config.CVFile)
	if path == "" {
		return "", errors.New("cv file is not set: use --cv, the cv-file config key or SKILL_GAP_CV_FILE")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading cv: %w", err)
	}

	cv := strings.TrimSpace(string(data))
	if cv == "" {
		return "", fmt.Errorf("cv file %q is empty", path)
	}

	return cv, nil
}

func newFetcher(config *Config, logger *zap.Logger) (*jobs.Fetcher, error) {
	fc := config.Postings.Fetch
	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}

	fetcher, err := jobs.NewFetcher(logger, jobs.FetchPolicy{
		Concurrency: concurrency,
		Delay:       fc.Delay,
		Timeout:     fc.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(fc.UserAgent); ua != "" {
		fetcher.UserAgent = ua
	}

	return fetcher, nil
}

// loadPostings reads posting files, fetches posting urls and runs the filters.
func loadPostings(ctx context.Context, config *Config, logger *zap.Logger) (*jobs.Postings, error) {
	postings, err := jobs.LoadAll(config.Postings.Files)
	if err != nil {
		return nil, fmt.Errorf("loading postings: %w", err)
	}
	logger.Info("postings loaded from files", zap.Int("count", postings.Len()), zap.Strings("files", config.Postings.Files))

	if len(config.Postings.URLs) > 0 {
		fetcher, err := newFetcher(config, logger)
		if err != nil {
			return nil, err
		}
		fetched, err := fetcher.Fetch(ctx, config.Postings.URLs)
		if err != nil {
			return nil, fmt.Errorf("fetching postings: %w", err)
		}
		postings.Items = append(postings.Items, fetched.Items...)
	}

	steps := filtering.Default()
	if err := filtering.Skip(steps, config.Filters.Skip); err != nil {
		return nil, fmt.Errorf("filtering postings: %w", err)
	}
	filtered, err := filtering.Run(&config.Filters, logger, steps, postings)
	if err != nil {
		return nil, fmt.Errorf("filtering postings: %w", err)
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	logger.Debug("postings ready", zap.Int("count", filtered.Len()), zap.Strings("titles", filtered.Titles()))

	return filtered, nil
}

func newAssistant(ctx context.Context, config *Config, logger *zap.Logger) (*assistant.Assistant, error) {
	templates, err := assistant.LoadTemplates(config.Prompts)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	completer, err := newCompleter(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring completion provider: %w", err)
	}

	embedder, err := newEmbedder(ctx, config.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring embedding provider: %w", err)
	}

	return assistant.New(completer, embedder, templates,
		assistant.WithLogger(logger),
		assistant.WithKeyPointWorkers(config.Analysis.Workers),
	)
}
