package crawler

import "time"

// CrawlTask is a single unit of work in the frontier: a canonical URL and the
// breadth-first level it was discovered at. Tasks are consumed exactly once
// and never mutated.
type CrawlTask struct {
	URL   string
	Depth int
}

// FetchResult is the raw outcome of fetching one URL. It is ephemeral and is
// consumed by the extractor immediately after the fetch completes.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Rendered   bool
	// Retries counts the failed attempts that preceded the successful one.
	Retries int
}

// ExtractedRecord is the structured content pulled from one fetched page.
// Records are immutable once produced; the engine owns them until they are
// handed to the sink.
type ExtractedRecord struct {
	URL             string   `json:"url"`
	CanonicalURL    string   `json:"canonical_url"`
	Text            string   `json:"text"`
	MetaDescription string   `json:"meta_description"`
	MetaKeywords    []string `json:"meta_keywords"`
	Images          []string `json:"images"`
	OutboundLinks   []string `json:"outbound_links"`
}
