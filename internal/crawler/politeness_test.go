package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPauseControllerHonorsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pauser := &timerPauseController{}
	start := time.Now()
	pauser.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestTimerPauseControllerSkipsZeroDelay(t *testing.T) {
	t.Parallel()
	pauser := &timerPauseController{}
	start := time.Now()
	pauser.Pause(context.Background(), 0)
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestProxyRotorRoundRobin(t *testing.T) {
	t.Parallel()
	rotor := newProxyRotor([]string{"http://a:1", "http://b:2", "http://c:3"})

	got := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		got = append(got, rotor.Next())
	}
	require.Equal(t, []string{
		"http://a:1", "http://b:2", "http://c:3",
		"http://a:1", "http://b:2", "http://c:3",
	}, got)
}

func TestProxyRotorEmpty(t *testing.T) {
	t.Parallel()
	rotor := newProxyRotor(nil)
	require.Empty(t, rotor.Next())

	rotor = newProxyRotor([]string{"", ""})
	require.Empty(t, rotor.Next(), "blank entries are ignored")
}
