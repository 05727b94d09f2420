package crawler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathTrapDetectorSegmentRepeats(t *testing.T) {
	t.Parallel()
	detector := NewPathTrapDetector(TrapConfig{})

	require.True(t, detector.IsTrap("http://example.com/a/a/a/a/a"),
		"five repeats of one segment should exceed the default threshold")
	require.True(t, detector.IsTrap("http://example.com/a/b/a/c/a/d/a"),
		"non-consecutive repeats count too")
	require.False(t, detector.IsTrap("http://example.com/a/b/c"))
	require.False(t, detector.IsTrap("http://example.com/a/a/a"),
		"exactly at the threshold is still allowed")
}

func TestPathTrapDetectorPathDepth(t *testing.T) {
	t.Parallel()
	detector := NewPathTrapDetector(TrapConfig{})

	require.False(t, detector.IsTrap("http://example.com/1/2/3/4/5/6/7/8/9/10"))
	require.True(t, detector.IsTrap("http://example.com/1/2/3/4/5/6/7/8/9/10/11"))
}

func TestPathTrapDetectorQueryDrift(t *testing.T) {
	t.Parallel()
	detector := NewPathTrapDetector(TrapConfig{})

	// A single numeric parameter counting upward trips the detector after
	// the threshold; further variants of the same family stay flagged.
	tripped := -1
	for i := 1; i <= 20; i++ {
		if detector.IsTrap(fmt.Sprintf("http://example.com/list?page=%d", i)) {
			tripped = i
			break
		}
	}
	require.NotEqual(t, -1, tripped, "incrementing parameter never tripped the detector")
	require.LessOrEqual(t, tripped, 6)
	require.True(t, detector.IsTrap("http://example.com/list?page=21"))
}

func TestPathTrapDetectorQueryDriftIgnoresDistinctFamilies(t *testing.T) {
	t.Parallel()
	detector := NewPathTrapDetector(TrapConfig{})

	require.False(t, detector.IsTrap("http://example.com/list?page=1"))
	require.False(t, detector.IsTrap("http://example.com/other?page=2"),
		"different path is a different family")
	require.False(t, detector.IsTrap("http://example.com/list?page=2&cat=books"),
		"different static parameters are a different family")
	require.False(t, detector.IsTrap("http://example.com/list?a=1&b=2"),
		"two numeric parameters never match the single-drift pattern")
}

func TestPathTrapDetectorCustomThresholds(t *testing.T) {
	t.Parallel()
	detector := NewPathTrapDetector(TrapConfig{MaxSegmentRepeats: 1, MaxPathSegments: 2})

	require.True(t, detector.IsTrap("http://example.com/a/a"))
	require.True(t, detector.IsTrap("http://example.com/a/b/c"))
	require.False(t, detector.IsTrap("http://example.com/a/b"))
}
