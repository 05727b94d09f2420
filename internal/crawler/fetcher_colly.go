package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticFetcher retrieves pages with plain HTTP requests through a Colly
// collector. One cookie jar is shared across the whole crawl run so cookies
// set by one response are presented on subsequent requests to the same host.
type StaticFetcher struct {
	jar       http.CookieJar
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// StaticFetcherConfig configures the static fetcher.
type StaticFetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
}

// NewStaticFetcher constructs a Colly-backed Fetcher.
func NewStaticFetcher(cfg StaticFetcherConfig, logger *zap.Logger) (*StaticFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticFetcher{
		jar:       jar,
		userAgent: cfg.UserAgent,
		timeout:   cfg.RequestTimeout,
		logger:    logger,
	}, nil
}

// Fetch issues a single GET for rawURL, optionally through proxy. The frontier
// owns deduplication and the retry wrapper owns repetition, so the collector
// allows revisits and reports error statuses as parsed responses.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL, proxy string) (FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return FetchResult{}, err
	}
	collector, err := f.newCollector(proxy)
	if err != nil {
		return FetchResult{}, err
	}

	resultCh := make(chan staticResult, 1)
	var once sync.Once
	send := func(res staticResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	start := time.Now()
	collector.OnResponse(func(r *colly.Response) {
		send(staticResult{
			statusCode: r.StatusCode,
			body:       append([]byte{}, r.Body...),
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(staticResult{err: err})
	})

	// Visit and Wait run off the worker goroutine so a hung server cannot
	// hold the worker past cancellation; the in-flight request is still
	// bounded by the collector's request timeout.
	visitDone := make(chan struct{})
	go func() {
		defer close(visitDone)
		if err := collector.Visit(rawURL); err != nil {
			send(staticResult{err: err})
		}
		collector.Wait()
	}()

	select {
	case <-ctx.Done():
		return FetchResult{}, ctx.Err()
	case <-visitDone:
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return FetchResult{}, f.classifyTransport(rawURL, res.err)
		}
		if kind := classifyStatus(res.statusCode); res.statusCode >= 400 {
			return FetchResult{}, &FetchError{
				Kind:       kind,
				URL:        rawURL,
				StatusCode: res.statusCode,
			}
		}
		return FetchResult{
			URL:        rawURL,
			StatusCode: res.statusCode,
			Body:       res.body,
			Duration:   time.Since(start),
		}, nil
	default:
		return FetchResult{}, fmt.Errorf("fetch %s: no response produced", rawURL)
	}
}

// newCollector builds a one-shot collector sharing the run-wide cookie jar.
// Collectors are per fetch so that per-task proxies never race.
func (f *StaticFetcher) newCollector(proxy string) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.IgnoreRobotsTxt(),
		colly.Async(true),
	)
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.timeout)
	collector.SetCookieJar(f.jar)
	if proxy != "" {
		if err := collector.SetProxy(proxy); err != nil {
			return nil, fmt.Errorf("set proxy %s: %w", proxy, err)
		}
	}
	return collector, nil
}

func (f *StaticFetcher) classifyTransport(rawURL string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{
			Kind: KindNetworkTimeout,
			URL:  rawURL,
			Err:  err,
		}
	}
	return fmt.Errorf("fetch %s: %w", rawURL, err)
}

type staticResult struct {
	statusCode int
	body       []byte
	err        error
}
