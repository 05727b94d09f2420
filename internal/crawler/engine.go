package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the settings for one crawl run. It is decoupled from Viper so
// the engine can be constructed and tested without the config loader.
type Config struct {
	Seeds            []string
	MaxDepth         int
	DomainRestricted bool
	RateLimit        time.Duration
	Proxies          []string
	Concurrency      int
}

// Engine drives the breadth-first loop: it drains one frontier level at a
// time into a bounded worker pool, waits for the level barrier, then advances.
// Workers fetch, extract, collapse canonical duplicates, and feed discovered
// links back into the frontier at the next depth.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	frontier  *Frontier
	sink      Sink
	pauser    pauseController
	proxies   *proxyRotor
	logger    *zap.Logger
	runID     string

	mu      sync.Mutex
	records []ExtractedRecord
}

// NewEngine validates the configuration and assembles an engine. The fetcher
// is wrapped with the retry policy here so both implementations share the
// same retry semantics. Configuration errors are the only run-fatal failures.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	extractor Extractor,
	traps TrapDetector,
	sink Sink,
	policy RetryPolicy,
	logger *zap.Logger,
) (*Engine, error) {
	if len(cfg.Seeds) == 0 {
		return nil, errors.New("at least one seed URL is required")
	}
	if cfg.MaxDepth < 0 {
		return nil, errors.New("max depth must be >= 0")
	}
	if cfg.RateLimit < 0 {
		return nil, errors.New("rate limit must be >= 0")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = NewExponentialRetryPolicy()
	}

	seedHost := ""
	for i, seed := range cfg.Seeds {
		canonical, err := Normalize(seed, "")
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", seed, err)
		}
		if i == 0 && cfg.DomainRestricted {
			seedHost = hostOf(canonical)
		}
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	return &Engine{
		cfg:       cfg,
		fetcher:   NewRetryingFetcher(fetcher, policy, logger),
		extractor: extractor,
		frontier:  NewFrontier(cfg.MaxDepth, seedHost, traps, logger),
		sink:      sink,
		pauser:    &timerPauseController{},
		proxies:   newProxyRotor(cfg.Proxies),
		logger:    logger,
		runID:     runID,
	}, nil
}

// RunID identifies this crawl run in logs and artifacts.
func (e *Engine) RunID() string { return e.runID }

// Run executes the crawl to completion and hands the accumulated records to
// the sink. Per-URL failures are contained to their task; Run only returns an
// error for context cancellation or a sink failure.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()

	for _, seed := range e.cfg.Seeds {
		if !e.frontier.Enqueue(seed, "", 0) {
			e.logger.Warn("seed not enqueued", zap.String("url", seed))
		}
	}

	for depth := 0; depth <= e.cfg.MaxDepth; depth++ {
		tasks := e.frontier.DrainLevel(depth)
		if len(tasks) == 0 {
			break
		}
		e.logger.Info("starting level",
			zap.Int("depth", depth),
			zap.Int("tasks", len(tasks)),
		)
		e.runLevel(ctx, tasks)
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	records := e.collectedRecords()
	if err := e.sink.Write(records); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	e.logger.Info("crawl finished",
		zap.Int("records", len(records)),
		zap.Int("visited", e.frontier.VisitedCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// runLevel dispatches every task of one level into a bounded pool and blocks
// until all of them complete. This barrier is what preserves breadth-first
// ordering across levels.
func (e *Engine) runLevel(ctx context.Context, tasks []CrawlTask) {
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(task CrawlTask) {
			defer wg.Done()
			defer func() { <-sem }()
			e.processTask(ctx, task)
		}(task)
	}
	wg.Wait()
}

// processTask runs the per-URL pipeline: rate-limit pause, fetch with retry,
// extract, canonical collapse, link discovery, record collection.
func (e *Engine) processTask(ctx context.Context, task CrawlTask) {
	e.pauser.Pause(ctx, e.cfg.RateLimit)
	if ctx.Err() != nil {
		return
	}

	proxy := e.proxies.Next()
	res, err := e.fetcher.Fetch(ctx, task.URL, proxy)
	if err != nil {
		e.recordFailure(task, err)
		return
	}

	record, err := e.extractor.Extract(res.Body, task.URL)
	if err != nil {
		e.logger.Warn("extraction failed",
			zap.String("url", task.URL),
			zap.Int("depth", task.Depth),
			zap.Error(err),
		)
		return
	}

	canonical, ok := e.resolveCanonical(task, record.CanonicalURL)
	if !ok {
		canonicalCollapses.Inc()
		e.logger.Debug("canonical duplicate collapsed",
			zap.String("url", task.URL),
			zap.String("canonical", canonical),
		)
		return
	}
	record.CanonicalURL = canonical

	for _, link := range record.OutboundLinks {
		e.frontier.Enqueue(link, task.URL, task.Depth+1)
	}

	pagesExtracted.Inc()
	e.logger.Info("page crawled",
		zap.String("url", task.URL),
		zap.Int("depth", task.Depth),
		zap.Int("status", res.StatusCode),
		zap.Int("retries", res.Retries),
		zap.Bool("rendered", res.Rendered),
		zap.Int("links", len(record.OutboundLinks)),
	)

	e.mu.Lock()
	e.records = append(e.records, record)
	e.mu.Unlock()
}

// resolveCanonical settles the dedup key for a fetched page. When the page
// declares a canonical target different from the request URL, the target is
// claimed in the visited set; a second page declaring the same target loses
// the claim and is dropped.
func (e *Engine) resolveCanonical(task CrawlTask, declared string) (string, bool) {
	if declared == "" {
		return task.URL, true
	}
	canonical, err := Normalize(declared, task.URL)
	if err != nil {
		e.logger.Debug("ignoring malformed canonical target",
			zap.String("url", task.URL),
			zap.String("canonical", declared),
		)
		return task.URL, true
	}
	if canonical == task.URL {
		return canonical, true
	}
	return canonical, e.frontier.MarkVisited(canonical)
}

func (e *Engine) recordFailure(task CrawlTask, err error) {
	kind := ErrorKind("transport")
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		kind = fetchErr.Kind
	}
	fetchFailures.WithLabelValues(string(kind)).Inc()
	e.logger.Error("task failed",
		zap.String("url", task.URL),
		zap.Int("depth", task.Depth),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}

func (e *Engine) collectedRecords() []ExtractedRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExtractedRecord, len(e.records))
	copy(out, e.records)
	return out
}
