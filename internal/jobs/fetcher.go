package jobs

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	userAgent       = "spigell/skill-gap (spigelly@gmail.com)"
	acceptEncoding  = "gzip"
	defaultTimeout  = 300 * time.Second
	maxConcurrency  = 8
	maxResponseSize = 10 << 20
)

// FetchPolicy controls how politely listing pages are fetched.
// Concurrency has no default and must be set by the caller.
type FetchPolicy struct {
	// Concurrency is the number of requests allowed in flight.
	Concurrency int
	// Delay is the minimal interval between two request starts.
	Delay time.Duration
	// Timeout bounds a single page load.
	Timeout time.Duration
}

func (p FetchPolicy) validate() error {
	if p.Concurrency < 1 || p.Concurrency > maxConcurrency {
		return fmt.Errorf("fetch concurrency must be between 1 and %d, got %d", maxConcurrency, p.Concurrency)
	}
	if p.Delay < 0 {
		return fmt.Errorf("fetch delay must not be negative, got %s", p.Delay)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("fetch timeout must not be negative, got %s", p.Timeout)
	}
	return nil
}

// Fetcher downloads public listing pages and turns them into postings.
type Fetcher struct {
	logger     *zap.Logger
	policy     FetchPolicy
	limiter    *rate.Limiter
	HTTPClient *http.Client
	UserAgent  string
}

func NewFetcher(logger *zap.Logger, policy FetchPolicy) (*Fetcher, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if policy.Timeout == 0 {
		policy.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if policy.Delay > 0 {
		limit = rate.Every(policy.Delay)
	}

	return &Fetcher{
		logger:     logger,
		policy:     policy,
		limiter:    rate.NewLimiter(limit, 1),
		HTTPClient: &http.Client{},
		UserAgent:  userAgent,
	}, nil
}

// Fetch loads every URL and returns postings in the order of urls.
// Blank pages are skipped; any failed page fails the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (*Postings, error) {
	items := make([]*Posting, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.policy.Concurrency)

	for idx, url := range urls {
		g.Go(func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}

			posting, err := f.fetchPage(ctx, url)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", url, err)
			}

			if strings.TrimSpace(posting.Title+posting.Company+posting.Description+posting.Location) == "" {
				f.logger.Warn("skipping blank listing page",
					zap.String("url", url),
					zap.String("hint", "the page layout may have changed or the listing was removed"),
				)
				return nil
			}

			f.logger.Info("fetched posting",
				zap.Int("position", idx+1),
				zap.String("title", posting.Title),
				zap.String("company", posting.Company),
			)

			items[idx] = &posting
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	postings := &Postings{Items: make([]Posting, 0, len(items))}
	for _, item := range items {
		if item != nil {
			postings.Items = append(postings.Items, *item)
		}
	}

	return postings, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, url string) (Posting, error) {
	ctx, cancel := context.WithTimeout(ctx, f.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Posting{}, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	f.logger.Debug("make request", zap.String("url", url))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Posting{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Posting{}, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Posting{}, err
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	posting, err := ParsePostingPage(io.LimitReader(body, maxResponseSize))
	if err != nil {
		return Posting{}, fmt.Errorf("parse listing page: %w", err)
	}

	return posting, nil
}
