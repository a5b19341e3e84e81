package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/pkg/models"
)

// Webhook posts an alert for every high-risk target to a configured URL.
// Delivery is best-effort: failures are logged and never surface to the
// scan.
type Webhook struct {
	http *http.Client
	url  string
	log  *logrus.Entry
}

// NewWebhook builds an alert sender for url.
func NewWebhook(url string, log *logrus.Entry) *Webhook {
	return &Webhook{
		http: &http.Client{Timeout: 10 * time.Second},
		url:  url,
		log:  log,
	}
}

type alertPayload struct {
	IP         string           `json:"ip"`
	Severity   float64          `json:"severity"`
	RiskLevel  models.RiskLevel `json:"risk_level"`
	VulnsCount int              `json:"vulns_count"`
	Vulns      []string         `json:"vulns"`
	Timestamp  string           `json:"timestamp"`
}

// Send posts one alert carrying the target's top vulnerabilities.
func (w *Webhook) Send(ctx context.Context, result models.ScanResult) {
	vulns := result.Vulns
	if len(vulns) > 5 {
		vulns = vulns[:5]
	}

	payload := alertPayload{
		IP:         result.IP,
		Severity:   result.SeverityScore,
		RiskLevel:  result.RiskLevel,
		VulnsCount: len(result.Vulns),
		Vulns:      vulns,
		Timestamp:  result.Timestamp,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Debugf("Webhook payload marshal failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		w.log.Debugf("Webhook request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		w.log.Warnf("Webhook delivery failed for %s: %v", result.IP, err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Warnf("Webhook for %s returned HTTP %d", result.IP, resp.StatusCode)
	}
}
