package crawler

import (
	"context"
	"sync"
	"time"
)

// pauseController abstracts how workers wait for rate limits and backoff.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// proxyRotor hands out configured proxies round-robin, one per task.
type proxyRotor struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

func newProxyRotor(proxies []string) *proxyRotor {
	out := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p != "" {
			out = append(out, p)
		}
	}
	return &proxyRotor{proxies: out}
}

// Next returns the next proxy in rotation, or "" when none are configured.
func (r *proxyRotor) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return ""
	}
	p := r.proxies[r.next%len(r.proxies)]
	r.next++
	return p
}
