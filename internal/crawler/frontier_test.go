package crawler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFrontierEnqueueDeduplicates(t *testing.T) {
	t.Parallel()
	f := NewFrontier(3, "", nil, zap.NewNop())

	require.True(t, f.Enqueue("http://example.com/a", "", 0))
	require.False(t, f.Enqueue("http://example.com/a", "", 0))
	require.False(t, f.Enqueue("http://EXAMPLE.com/a/", "", 1),
		"equivalent spellings must collapse to one visited entry")
	require.Equal(t, 1, f.VisitedCount())
}

func TestFrontierEnqueueRejectsBeyondMaxDepth(t *testing.T) {
	t.Parallel()
	f := NewFrontier(2, "", nil, zap.NewNop())

	require.True(t, f.Enqueue("http://example.com/a", "", 2))
	require.False(t, f.Enqueue("http://example.com/b", "", 3))
	require.Empty(t, f.DrainLevel(3))
}

func TestFrontierEnqueueDomainRestriction(t *testing.T) {
	t.Parallel()
	f := NewFrontier(2, "example.com", nil, zap.NewNop())

	require.True(t, f.Enqueue("http://example.com/a", "", 0))
	require.False(t, f.Enqueue("https://other.com/x", "", 1))
	require.True(t, f.Enqueue("https://example.com/b", "", 1),
		"same host on a different scheme is still in-domain")
}

func TestFrontierEnqueueDropsMalformed(t *testing.T) {
	t.Parallel()
	f := NewFrontier(2, "", nil, zap.NewNop())

	require.False(t, f.Enqueue("mailto:nobody@example.com", "", 0))
	require.False(t, f.Enqueue("javascript:void(0)", "http://example.com", 0))
	require.Equal(t, 0, f.VisitedCount())
}

func TestFrontierEnqueueAppliesTrapDetector(t *testing.T) {
	t.Parallel()
	f := NewFrontier(2, "", NewPathTrapDetector(TrapConfig{}), zap.NewNop())

	require.False(t, f.Enqueue("http://example.com/a/a/a/a/a", "", 0))
	require.Equal(t, 0, f.VisitedCount(), "trapped URLs never enter the visited set")
}

func TestFrontierDrainLevel(t *testing.T) {
	t.Parallel()
	f := NewFrontier(2, "", nil, zap.NewNop())

	require.True(t, f.Enqueue("http://example.com/a", "", 0))
	require.True(t, f.Enqueue("http://example.com/b", "", 1))
	require.True(t, f.Enqueue("http://example.com/c", "", 1))

	level0 := f.DrainLevel(0)
	require.Len(t, level0, 1)
	require.Equal(t, CrawlTask{URL: "http://example.com/a", Depth: 0}, level0[0])

	level1 := f.DrainLevel(1)
	require.Len(t, level1, 2)
	require.Empty(t, f.DrainLevel(1), "draining is destructive")
}

func TestFrontierEnqueueAtMostOnceUnderConcurrency(t *testing.T) {
	t.Parallel()
	f := NewFrontier(1, "", nil, zap.NewNop())

	const workers = 32
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Everyone races to enqueue the same page plus one unique page.
			if f.Enqueue("http://example.com/shared", "", 1) {
				admitted.Add(1)
			}
			f.Enqueue(fmt.Sprintf("http://example.com/unique/%d", i), "", 1)
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), admitted.Load(), "shared URL must be admitted exactly once")
	require.Len(t, f.DrainLevel(1), workers+1)
}

func TestFrontierMarkVisited(t *testing.T) {
	t.Parallel()
	f := NewFrontier(1, "", nil, zap.NewNop())

	require.True(t, f.MarkVisited("http://example.com/canonical"))
	require.False(t, f.MarkVisited("http://example.com/canonical"))
	require.False(t, f.Enqueue("http://example.com/canonical", "", 0),
		"canonical claims block later enqueues of the same URL")
}
