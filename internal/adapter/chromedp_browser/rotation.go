package chromedp_browser

import (
	"math/rand/v2"
	"sync"
)

// rotation hands out proxies round-robin and user agents at random.
type rotation struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
}

func newRotation(proxies, userAgents []string) *rotation {
	return &rotation{proxies: proxies, userAgents: userAgents}
}

// proxy returns the next proxy, or "" when none are configured.
func (r *rotation) proxy() string {
	if len(r.proxies) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.proxyIndex]
	r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	return p
}

func (r *rotation) userAgent() string {
	if len(r.userAgents) == 0 {
		return ""
	}
	return r.userAgents[rand.IntN(len(r.userAgents))]
}
