package identity

import (
	"math/rand"
	"net/http"
	"sync"
)

// Identity is one simulated client fingerprint: a user agent plus the
// accompanying headers a browser with that agent would send.
type Identity struct {
	UserAgent      string
	AcceptLanguage string
}

// Apply sets the identity's headers on an outgoing request.
func (id Identity) Apply(req *http.Request) {
	req.Header.Set("User-Agent", id.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", id.AcceptLanguage)
	req.Header.Set("Connection", "keep-alive")
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/119.0",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"ru-RU,ru;q=0.8,en;q=0.3",
}

// Pool rotates over a fixed set of identities so consecutive requests
// do not all carry the same fingerprint.
type Pool struct {
	mu   sync.Mutex
	ids  []Identity
	next int
}

// NewPool seeds a pool with size identities drawn from the catalog.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 10
	}

	ids := make([]Identity, 0, size)
	for i := 0; i < size; i++ {
		ids = append(ids, Identity{
			UserAgent:      userAgents[rand.Intn(len(userAgents))],
			AcceptLanguage: acceptLanguages[rand.Intn(len(acceptLanguages))],
		})
	}

	return &Pool{ids: ids}
}

// Next returns the next identity in rotation.
func (p *Pool) Next() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.ids[p.next]
	p.next = (p.next + 1) % len(p.ids)
	return id
}

// Size returns the number of identities in the pool.
func (p *Pool) Size() int {
	return len(p.ids)
}
