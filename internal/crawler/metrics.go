package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchAttempts counts every fetch attempt, including retries.
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fetch_attempts_total",
		Help: "The total number of fetch attempts dispatched, retries included.",
	})
	// fetchRetries counts attempts that were repeats of a failed fetch.
	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fetch_retries_total",
		Help: "The total number of fetch retries.",
	})
	// fetchFailures counts tasks that ultimately failed, by error kind.
	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_fetch_failures_total",
		Help: "The total number of tasks that failed, labeled by error kind.",
	}, []string{"kind"})
	// pagesExtracted counts pages that produced a record.
	pagesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_pages_extracted_total",
		Help: "The total number of pages successfully extracted.",
	})
	// trapDrops counts URLs rejected by the spider trap detector.
	trapDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_trap_drops_total",
		Help: "The total number of URLs dropped as suspected spider traps.",
	})
	// linksDropped counts discovered links rejected before enqueue.
	linksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawler_links_dropped_total",
		Help: "The total number of links dropped before enqueue, by reason.",
	}, []string{"reason"})
	// canonicalCollapses counts records discarded as canonical duplicates.
	canonicalCollapses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_canonical_collapses_total",
		Help: "The total number of pages collapsed into an already-seen canonical URL.",
	})
)
