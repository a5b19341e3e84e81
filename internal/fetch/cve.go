package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/internal/cache"
)

// severityFields are the names different CVE data sources use for their
// numeric severity rating, in lookup order.
var severityFields = []string{"cvss_v3", "cvss_v3_score", "cvss", "cvss_score", "score"}

// CVEClient looks up vulnerability details with its own 24-hour cache.
// Lookups are best-effort: any failure yields an empty record so the
// target's scan continues without severity data.
type CVEClient struct {
	client  Doer
	baseURL string
	timeout time.Duration
	cache   *cache.Cache
	log     *logrus.Entry
}

// NewCVEClient builds a detail client over the given cache.
func NewCVEClient(client Doer, baseURL string, timeout time.Duration, store *cache.Cache, log *logrus.Entry) *CVEClient {
	return &CVEClient{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
		cache:   store,
		log:     log,
	}
}

// Details returns the decoded detail record for a vulnerability id, or
// nil when nothing could be fetched.
func (c *CVEClient) Details(ctx context.Context, id string) map[string]any {
	if raw, ok := c.cache.Get(id); ok {
		var details map[string]any
		if err := json.Unmarshal(raw, &details); err == nil {
			return details
		}
	}

	body, err := c.get(ctx, id)
	if err != nil {
		c.log.Debugf("CVE lookup failed for %s: %v", id, err)
		// Negative-cache the miss so a popular CVE is not re-fetched
		// for every target that carries it.
		c.cache.Put(id, json.RawMessage(`{}`))
		return nil
	}

	var details map[string]any
	if err := json.Unmarshal(body, &details); err != nil {
		c.log.Debugf("Undecodable CVE record for %s: %v", id, err)
		return nil
	}

	c.cache.Put(id, body)
	return details
}

func (c *CVEClient) get(ctx context.Context, id string) ([]byte, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/cve/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Score extracts the numeric severity from a CVE detail record, trying
// the known field names in order. Strings are coerced; anything absent,
// non-numeric, or non-positive counts as "no score".
func Score(details map[string]any) (float64, bool) {
	for _, field := range severityFields {
		v, ok := details[field]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n > 0 {
				return n, true
			}
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil && f > 0 {
				return f, true
			}
		case json.Number:
			if f, err := n.Float64(); err == nil && f > 0 {
				return f, true
			}
		}
	}
	return 0, false
}
