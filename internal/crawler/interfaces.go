package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the raw markup for a URL. The proxy address is optional;
// implementations that cannot honor it per request may pin it per browsing
// context. Both the static and the rendered fetcher satisfy this contract and
// are selected at configuration time, never at runtime.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, proxy string) (FetchResult, error)
}

// RetryPolicy decides whether a failed fetch attempt should be repeated and
// how long to back off before the next try. attempt is 1-based: the number of
// attempts already made.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Extractor turns fetched markup into a structured record. Extraction never
// fails on missing elements; absent fields yield empty values.
type Extractor interface {
	Extract(body []byte, sourceURL string) (ExtractedRecord, error)
}

// TrapDetector flags URLs whose shape suggests a crawler trap. Flagged URLs
// are dropped before they reach the frontier.
type TrapDetector interface {
	IsTrap(rawURL string) bool
}

// Sink receives the accumulated records once the crawl terminates. Calls are
// serialized by the engine.
type Sink interface {
	Write(records []ExtractedRecord) error
}
