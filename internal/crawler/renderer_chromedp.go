package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RenderedFetcher fetches pages through headless Chrome so that page scripts
// run before the markup is captured. It satisfies the same Fetcher contract
// as StaticFetcher; the caller chooses between them at configuration time.
//
// Chrome pins its proxy at process launch, so per-task proxies are honored by
// keeping one browser per distinct proxy address, created lazily.
type RenderedFetcher struct {
	userAgent  string
	timeout    time.Duration
	settleWait time.Duration
	domainQPS  float64
	logger     *zap.Logger

	sem            chan struct{}
	domainLimiters sync.Map

	mu       sync.Mutex
	browsers map[string]*browserHandle
	closed   bool
}

type browserHandle struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// RenderedFetcherConfig configures the rendered fetcher.
type RenderedFetcherConfig struct {
	UserAgent string
	// RenderTimeout bounds one navigation plus settle; expiry maps to
	// KindRenderTimeout and is retried like a network timeout.
	RenderTimeout time.Duration
	// SettleWait is an extra fixed delay after DOM-ready, for pages that
	// keep painting after the ready signal.
	SettleWait time.Duration
	// MaxParallel bounds concurrent tabs.
	MaxParallel int
	// DomainQPS caps render navigations per host; 0 disables the cap.
	DomainQPS float64
}

// NewRenderedFetcher creates the fetcher. Browsers launch lazily on first use.
func NewRenderedFetcher(cfg RenderedFetcherConfig, logger *zap.Logger) (*RenderedFetcher, error) {
	if cfg.MaxParallel <= 0 {
		return nil, errors.New("rendered fetcher requires max parallel > 0")
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 25 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderedFetcher{
		userAgent:  cfg.UserAgent,
		timeout:    cfg.RenderTimeout,
		settleWait: cfg.SettleWait,
		domainQPS:  cfg.DomainQPS,
		logger:     logger,
		sem:        make(chan struct{}, cfg.MaxParallel),
		browsers:   make(map[string]*browserHandle),
	}, nil
}

// Close tears down every launched browser.
func (f *RenderedFetcher) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for _, h := range f.browsers {
		h.cancelBrowser()
		h.cancelAlloc()
	}
	f.browsers = make(map[string]*browserHandle)
	return nil
}

// Fetch renders rawURL and returns the post-script DOM snapshot.
func (f *RenderedFetcher) Fetch(ctx context.Context, rawURL, proxy string) (FetchResult, error) {
	release, err := f.acquireSlot(ctx)
	if err != nil {
		return FetchResult{}, err
	}
	defer release()

	if err := f.waitDomainBudget(ctx, rawURL); err != nil {
		return FetchResult{}, fmt.Errorf("render rate limit: %w", err)
	}

	handle, err := f.browserFor(proxy)
	if err != nil {
		return FetchResult{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(handle.ctx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	f.recordResponse(tabCtx, meta)

	start := time.Now()
	html, err := f.runNavigate(taskCtx, rawURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return FetchResult{}, &FetchError{
				Kind: KindRenderTimeout,
				URL:  rawURL,
				Err:  err,
			}
		}
		return FetchResult{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	if meta.statusCode >= 400 {
		return FetchResult{}, &FetchError{
			Kind:       classifyStatus(meta.statusCode),
			URL:        rawURL,
			StatusCode: meta.statusCode,
		}
	}

	return FetchResult{
		URL:        rawURL,
		StatusCode: meta.statusCode,
		Body:       []byte(html),
		Duration:   time.Since(start),
		Rendered:   true,
	}, nil
}

func (f *RenderedFetcher) runNavigate(ctx context.Context, rawURL string) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(f.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if f.settleWait > 0 {
		tasks = append(tasks, chromedp.Sleep(f.settleWait))
	}
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", err
	}
	return html, nil
}

// browserFor returns the browser pinned to the given proxy, launching it on
// first use.
func (f *RenderedFetcher) browserFor(proxy string) (*browserHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("rendered fetcher is closed")
	}
	if h, ok := f.browsers[proxy]; ok {
		return h, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(f.userAgent),
	)
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}
	allocatorCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	h := &browserHandle{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
	f.browsers[proxy] = h
	f.logger.Info("launched headless browser", zap.String("proxy", proxy))
	return h, nil
}

func (f *RenderedFetcher) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (f *RenderedFetcher) waitDomainBudget(ctx context.Context, rawURL string) error {
	if f.domainQPS <= 0 {
		return nil
	}
	host := hostOf(rawURL)
	val, _ := f.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: make(http.Header)}
}

func (f *RenderedFetcher) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
