package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/internal/crawler"
	"github.com/Kiarash1380mohebbi/web-scrapy/logger"
	"github.com/Kiarash1380mohebbi/web-scrapy/pkg/errors"
	"github.com/Kiarash1380mohebbi/web-scrapy/services/publisher"

	"github.com/google/uuid"
)

// PageFetcher fetches search pages. The returned slice is indexed like
// targets and holds nil for every delivered page.
type PageFetcher interface {
	Fetch(ctx context.Context, targets []crawler.SiteTarget, onPage func(crawler.Page)) []error
}

// ArtifactStore persists the result of a run
type ArtifactStore interface {
	Clear() error
	Write(records []crawler.ProductRecord) error
	Path() string
}

// Result describes a successful search run
type Result struct {
	RunID       string
	Query       string
	Records     []crawler.ProductRecord
	Pages       []crawler.PageResult
	FetchErrors []error
	Elapsed     time.Duration
}

// Worker runs one search invocation end to end
type Worker struct {
	sites     []crawler.SiteConfig
	registry  *crawler.Registry
	fetcher   PageFetcher
	store     ArtifactStore
	publisher publisher.Publisher
	timeout   time.Duration
}

// NewWorker creates a new worker. pub may be nil.
func NewWorker(
	sites []crawler.SiteConfig,
	fetcher PageFetcher,
	store ArtifactStore,
	pub publisher.Publisher,
	timeout time.Duration,
) (*Worker, error) {
	registry, err := crawler.NewRegistry(sites)
	if err != nil {
		return nil, err
	}

	return &Worker{
		sites:     sites,
		registry:  registry,
		fetcher:   fetcher,
		store:     store,
		publisher: pub,
		timeout:   timeout,
	}, nil
}

// Search runs the query against every configured site and writes the
// artifact. Any returned error means the run failed and no artifact
// exists; page and item problems only show up in the result.
func (w *Worker) Search(ctx context.Context, rawQuery string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.ForWorker().WithStr("run_id", runID)

	// The previous artifact goes first so a failed run never leaves stale results
	if err := w.store.Clear(); err != nil {
		return nil, err
	}

	query := crawler.NormalizeQuery(rawQuery)
	if query == "" {
		return nil, errors.NewValidation("", "query is empty after normalization")
	}

	targets := crawler.Plan(query, w.sites)
	log.Info().
		Str("query", query).
		Int("targets", len(targets)).
		Dur("timeout", w.timeout).
		Msg("Starting search")

	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	agg := crawler.NewAggregator()
	var (
		mu    sync.Mutex
		pages []crawler.PageResult
	)
	onPage := func(page crawler.Page) {
		res := crawler.ProcessPage(w.registry, page)
		logPageResult(runID, res)
		agg.Add(page.Target.Order, res.Records)

		mu.Lock()
		pages = append(pages, res)
		mu.Unlock()
	}

	fetchErrs := w.fetcher.Fetch(runCtx, targets, onPage)

	if err := runCtx.Err(); err != nil {
		// whatever was aggregated is discarded as a unit
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewTimeout(fmt.Sprintf("search did not finish within %s", w.timeout), err)
		}
		return nil, errors.NewTimeout("search cancelled", err)
	}

	var failed []error
	for i, err := range fetchErrs {
		if err == nil {
			continue
		}
		failed = append(failed, err)
		log.Warn().Err(err).Str("site", string(targets[i].Site)).Msg("Site fetch failed")
	}
	if len(targets) > 0 && len(failed) == len(targets) {
		return nil, errors.NewNetwork("", "no site could be fetched", stderrors.Join(failed...))
	}

	records := agg.Records()
	if err := w.store.Write(records); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		Query:       query,
		Records:     records,
		FetchErrors: failed,
		Elapsed:     time.Since(start),
	}
	mu.Lock()
	result.Pages = append(result.Pages, pages...)
	mu.Unlock()

	log.Info().
		Int("records", len(records)).
		Int("failed_sites", len(failed)).
		Str("artifact", w.store.Path()).
		Dur("elapsed", result.Elapsed).
		Msg("Search finished")

	w.publish(log, result)
	return result, nil
}

// publish sends the completion event; failures are logged, never fatal
func (w *Worker) publish(log *logger.Logger, result *Result) {
	if w.publisher == nil {
		return
	}

	event := publisher.SearchCompleted{
		RunID:       result.RunID,
		Query:       result.Query,
		RecordCount: len(result.Records),
		Artifact:    w.store.Path(),
		FinishedAt:  time.Now().UTC(),
	}
	if err := publisher.PublishSearchCompleted(w.publisher, event); err != nil {
		log.Error().Err(err).Msg("Failed to publish completion event")
		return
	}

	// Trim all streams after publishing
	if err := w.publisher.TrimStreams(); err != nil {
		log.Warn().Err(err).Msg("Failed to trim streams")
	}
}

func logPageResult(runID string, res crawler.PageResult) {
	pageLog := logger.ForCrawler(string(res.Site)).WithStr("run_id", runID).WithStr("url", res.URL)

	switch res.Outcome {
	case crawler.OutcomeExtracted:
		pageLog.Info().Int("records", len(res.Records)).Msg("Page extracted")
	case crawler.OutcomeEmpty:
		pageLog.Warn().Err(res.Err).Msg("Page yielded no records")
	case crawler.OutcomeFailed:
		pageLog.Error().Err(res.Err).Msg("Page extraction failed")
	}

	for _, issue := range res.Issues {
		if errors.IsType(issue, errors.ErrorTypePrice) {
			pageLog.Warn().Err(issue).Msg("Unparseable price, record kept without price")
			continue
		}
		pageLog.Warn().Err(issue).Msg("Item skipped")
	}
}
