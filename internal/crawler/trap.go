package crawler

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Trap detection defaults; exposed as configuration because the heuristic
// thresholds are best-effort, not canonical.
const (
	defaultMaxSegmentRepeats = 3
	defaultMaxPathSegments   = 10
)

// TrapConfig tunes the spider trap heuristics.
type TrapConfig struct {
	// MaxSegmentRepeats flags a path once any single segment occurs more
	// than this many times, consecutively or not.
	MaxSegmentRepeats int
	// MaxPathSegments flags paths deeper than this many segments.
	MaxPathSegments int
}

// PathTrapDetector flags pathological URLs before they are enqueued: paths
// with excessive segment repetition, paths that are implausibly deep, and
// families of URLs that differ only by a monotonically incrementing numeric
// query parameter.
type PathTrapDetector struct {
	cfg TrapConfig

	mu    sync.Mutex
	drift map[string]*driftState
}

type driftState struct {
	lastValue int64
	increases int
}

// NewPathTrapDetector builds a detector, substituting defaults for
// non-positive thresholds.
func NewPathTrapDetector(cfg TrapConfig) *PathTrapDetector {
	if cfg.MaxSegmentRepeats <= 0 {
		cfg.MaxSegmentRepeats = defaultMaxSegmentRepeats
	}
	if cfg.MaxPathSegments <= 0 {
		cfg.MaxPathSegments = defaultMaxPathSegments
	}
	return &PathTrapDetector{
		cfg:   cfg,
		drift: make(map[string]*driftState),
	}
}

// IsTrap reports whether the URL should be dropped. Query-drift tracking is
// stateful: the detector remembers numeric parameter progressions per URL
// family for the lifetime of one crawl run.
func (d *PathTrapDetector) IsTrap(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	segments := splitPathSegments(u.Path)
	if len(segments) > d.cfg.MaxPathSegments {
		return true
	}
	if maxSegmentCount(segments) > d.cfg.MaxSegmentRepeats {
		return true
	}

	return d.queryDrift(u)
}

// queryDrift detects URL families where the only change between sightings is
// a single numeric parameter counting upward, e.g. ?page=1, ?page=2, ...
func (d *PathTrapDetector) queryDrift(u *url.URL) bool {
	values := u.Query()
	if len(values) == 0 {
		return false
	}

	var numericKey string
	var numericValue int64
	numericSeen := 0
	static := make([]string, 0, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			if n, err := strconv.ParseInt(vals[0], 10, 64); err == nil {
				numericKey = key
				numericValue = n
				numericSeen++
				continue
			}
		}
		for _, v := range vals {
			static = append(static, key+"="+v)
		}
	}
	if numericSeen != 1 {
		return false
	}
	sort.Strings(static)

	family := u.Hostname() + u.EscapedPath() + "?" + strings.Join(static, "&") + "#" + numericKey

	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.drift[family]
	if !ok {
		d.drift[family] = &driftState{lastValue: numericValue}
		return false
	}
	if numericValue > state.lastValue {
		state.increases++
	}
	state.lastValue = numericValue
	return state.increases >= d.cfg.MaxSegmentRepeats
}

func splitPathSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func maxSegmentCount(segments []string) int {
	counts := make(map[string]int, len(segments))
	best := 0
	for _, s := range segments {
		counts[s]++
		if counts[s] > best {
			best = counts[s]
		}
	}
	return best
}
