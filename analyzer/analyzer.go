// Package analyzer runs the full verdict pipeline: fetch, map, extract,
// score, infer the stage and rate each blocker at that stage.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/landing-verdict/backend/fetcher"
	"github.com/landing-verdict/backend/pagemap"
	"github.com/landing-verdict/backend/signals"
	"github.com/landing-verdict/backend/stats"
)

// MaxBatchSize is the largest batch AnalyzeBatch accepts.
const MaxBatchSize = 10

var (
	ErrEmptyBatch    = eris.New("analyzer: batch is empty")
	ErrBatchTooLarge = eris.New("analyzer: batch too large")
)

// Config configures an Analyzer.
type Config struct {
	Fetch          fetcher.Config
	MaxConcurrency int
}

// Analyzer evaluates landing pages by URL or HTML. It is safe for
// concurrent use.
type Analyzer struct {
	fetcher        *fetcher.Fetcher
	stats          *stats.Storage
	maxConcurrency int
}

// New creates an Analyzer. storage may be nil, in which case nothing is
// counted.
func New(cfg Config, storage *stats.Storage) *Analyzer {
	var rec fetcher.Recorder
	if storage != nil {
		rec = storage
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 4
	}
	return &Analyzer{
		fetcher:        fetcher.New(cfg.Fetch, rec),
		stats:          storage,
		maxConcurrency: cfg.MaxConcurrency,
	}
}

// AnalyzeURL fetches url and evaluates it.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (*Verdict, error) {
	requestID := uuid.NewString()
	log := zap.L().With(zap.String("request_id", requestID), zap.String("url", url))
	start := time.Now()

	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.recordError()
		log.Warn("fetch failed", zap.Error(err))
		return nil, err
	}

	pm, err := pagemap.FromHTML(url, page.HTML)
	if err != nil {
		a.recordError()
		log.Warn("page mapping failed", zap.Error(err))
		return nil, err
	}

	v := a.finish(requestID, inputFromPage(pm, signals.InputURL))
	log.Info("analysis complete",
		zap.Bool("from_cache", page.FromCache),
		zap.Strings("blockers", v.BlockerIDs()),
		zap.String("stage", string(v.Stage.Stage)),
		zap.Float64("decision_probability", v.Decision.DecisionProbability),
		zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

// AnalyzeHTML evaluates pasted HTML or page text. url is informational.
func (a *Analyzer) AnalyzeHTML(ctx context.Context, url, html string) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analyzer: analyze html")
	}
	requestID := uuid.NewString()
	log := zap.L().With(zap.String("request_id", requestID), zap.String("url", url))

	pm, err := pagemap.FromHTML(url, html)
	if err != nil {
		a.recordError()
		log.Warn("page mapping failed", zap.Error(err))
		return nil, err
	}

	v := a.finish(requestID, inputFromPage(pm, signals.InputHTML))
	log.Info("analysis complete",
		zap.Int("html_bytes", len(html)),
		zap.Strings("blockers", v.BlockerIDs()),
		zap.String("stage", string(v.Stage.Stage)),
		zap.Float64("decision_probability", v.Decision.DecisionProbability))
	return v, nil
}

// AnalyzeInput evaluates caller-supplied collaborator payloads.
func (a *Analyzer) AnalyzeInput(in Input) *Verdict {
	requestID := uuid.NewString()
	v := a.finish(requestID, in)
	zap.L().Info("analysis complete",
		zap.String("request_id", requestID),
		zap.String("url", in.URL),
		zap.Strings("blockers", v.BlockerIDs()),
		zap.String("stage", string(v.Stage.Stage)))
	return v
}

// AnalyzeBatch analyzes urls with at most concurrency fetches in flight.
// A failing URL is reported in its item and does not stop the batch.
// Items keep the order of urls.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string, concurrency int) ([]BatchItem, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(urls) > MaxBatchSize {
		return nil, eris.Wrapf(ErrBatchTooLarge, "%d urls, limit %d", len(urls), MaxBatchSize)
	}
	if concurrency < 1 || concurrency > a.maxConcurrency {
		concurrency = a.maxConcurrency
	}

	items := make([]BatchItem, len(urls))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range urls {
		i, u := i, strings.TrimSpace(u)
		g.Go(func() error {
			items[i].URL = u
			v, err := a.AnalyzeURL(ctx, u)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Verdict = v
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete", zap.Int("urls", len(urls)), zap.Int("concurrency", concurrency))
	return items, nil
}

// CacheStats reports the page cache state.
func (a *Analyzer) CacheStats() fetcher.CacheStats {
	return a.fetcher.CacheStats()
}

// Stats returns the counter storage, which may be nil.
func (a *Analyzer) Stats() *stats.Storage {
	return a.stats
}

// Shutdown stops background work and flushes statistics.
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}
	a.fetcher.Close()
	if a.stats != nil {
		if err := a.stats.Shutdown(); err != nil {
			return eris.Wrap(err, "analyzer: shutdown stats storage")
		}
	}
	return nil
}

func (a *Analyzer) finish(requestID string, in Input) *Verdict {
	v := Evaluate(in)
	v.RequestID = requestID
	if a.stats != nil {
		a.stats.RecordAnalysis(v.BlockerIDs(), string(v.Stage.Stage))
	}
	return v
}

func (a *Analyzer) recordError() {
	if a.stats != nil {
		a.stats.RecordError()
	}
}
