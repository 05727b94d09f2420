package crawler

import (
	"sync"

	"go.uber.org/zap"
)

// Frontier owns the breadth-first crawl state: one task queue per depth level
// and the set of canonical URLs already claimed by some task. Enqueue is the
// single synchronization point that guarantees each canonical URL is fetched
// at most once, no matter how many workers discover it concurrently.
type Frontier struct {
	maxDepth int
	seedHost string // non-empty when domain restriction is on
	traps    TrapDetector
	logger   *zap.Logger

	mu      sync.Mutex
	visited map[string]struct{}
	levels  map[int][]CrawlTask
}

// NewFrontier builds a frontier bounded at maxDepth. seedHost restricts
// admission to that host when non-empty. traps may be nil.
func NewFrontier(maxDepth int, seedHost string, traps TrapDetector, logger *zap.Logger) *Frontier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		maxDepth: maxDepth,
		seedHost: seedHost,
		traps:    traps,
		logger:   logger,
		visited:  make(map[string]struct{}),
		levels:   make(map[int][]CrawlTask),
	}
}

// Enqueue normalizes rawURL against baseURL and admits it at the given depth.
// It rejects URLs beyond the depth bound, outside the seed host when domain
// restriction is on, flagged by the trap detector, or already visited. The
// visited check-and-insert is atomic. Returns true when a task was queued.
func (f *Frontier) Enqueue(rawURL, baseURL string, depth int) bool {
	if depth > f.maxDepth {
		return false
	}

	canonical, err := Normalize(rawURL, baseURL)
	if err != nil {
		f.logger.Debug("dropping malformed link", zap.String("url", rawURL), zap.Error(err))
		linksDropped.WithLabelValues("malformed").Inc()
		return false
	}

	if f.seedHost != "" && hostOf(canonical) != f.seedHost {
		linksDropped.WithLabelValues("off_domain").Inc()
		return false
	}

	if f.traps != nil && f.traps.IsTrap(canonical) {
		f.logger.Info("spider trap detected", zap.String("url", canonical), zap.Int("depth", depth))
		trapDrops.Inc()
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, seen := f.visited[canonical]; seen {
		return false
	}
	f.visited[canonical] = struct{}{}
	f.levels[depth] = append(f.levels[depth], CrawlTask{URL: canonical, Depth: depth})
	return true
}

// DrainLevel removes and returns every task queued at the given depth. It
// returns nil once the level is empty; the engine never dispatches a deeper
// level while tasks from this one are outstanding.
func (f *Frontier) DrainLevel(depth int) []CrawlTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := f.levels[depth]
	delete(f.levels, depth)
	return tasks
}

// MarkVisited records a canonical URL discovered after fetch (a canonical
// link tag target) and reports whether it was new. The engine uses this to
// collapse request URLs that declare the same canonical target into one
// record.
func (f *Frontier) MarkVisited(canonical string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, seen := f.visited[canonical]; seen {
		return false
	}
	f.visited[canonical] = struct{}{}
	return true
}

// VisitedCount returns the size of the visited set.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
