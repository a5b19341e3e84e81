package identity

import (
	"bufio"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProxyPool rotates over configured egress proxies. An empty pool is a
// valid no-proxy configuration: Next returns nil and requests go direct.
type ProxyPool struct {
	mu      sync.Mutex
	proxies []*url.URL
	next    int
}

// LoadProxyPool reads one proxy URL per line from path. A missing or
// unreadable file disables proxying instead of failing startup.
func LoadProxyPool(path string, log *logrus.Entry) *ProxyPool {
	pool := &ProxyPool{}
	if path == "" {
		return pool
	}

	f, err := os.Open(path)
	if err != nil {
		log.Warnf("Proxy file %s unreadable, proxying disabled: %v", path, err)
		return pool
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil {
			log.Warnf("Skipping malformed proxy %q: %v", line, err)
			continue
		}
		pool.proxies = append(pool.proxies, u)
	}

	if len(pool.proxies) > 0 {
		log.Infof("Loaded %d proxies from %s", len(pool.proxies), path)
	}
	return pool
}

// Next returns the next proxy in rotation, or nil when none are configured.
func (p *ProxyPool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return nil
	}

	u := p.proxies[p.next]
	p.next = (p.next + 1) % len(p.proxies)
	return u
}

// Size returns the number of configured proxies.
func (p *ProxyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// ProxyFunc adapts the pool to http.Transport's proxy selector so each
// outgoing request picks up the next proxy in rotation.
func (p *ProxyPool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	if p.Size() == 0 {
		return nil
	}
	return func(*http.Request) (*url.URL, error) {
		return p.Next(), nil
	}
}
