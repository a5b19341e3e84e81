package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

// New builds an HTTP client tuned for many short-lived API calls. A nil
// proxy selector falls back to the environment proxy settings.
func New(timeout time.Duration, proxy func(*http.Request) (*url.URL, error)) *http.Client {
	if proxy == nil {
		proxy = http.ProxyFromEnvironment
	}

	tr := &http.Transport{
		Proxy:               proxy,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
	}
}
