// Package geo resolves IP addresses to locations via ip-api.com.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/pkg/models"
)

const defaultBaseURL = "http://ip-api.com/json"

// Client queries the public ip-api.com JSON endpoint. Lookups are
// best-effort: failures return nil so the scan never stalls on
// geolocation.
type Client struct {
	http    *http.Client
	baseURL string
	log     *logrus.Entry
}

// NewClient builds a geolocation client. An empty baseURL uses the
// public ip-api.com service.
func NewClient(httpClient *http.Client, baseURL string, log *logrus.Entry) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: httpClient, baseURL: baseURL, log: log}
}

type apiResponse struct {
	Status     string  `json:"status"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	ISP        string  `json:"isp"`
	Org        string  `json:"org"`
	AS         string  `json:"as"`
}

// Lookup resolves ip to its location, or nil when the service fails or
// has no record.
func (c *Client) Lookup(ctx context.Context, ip string) *models.Geolocation {
	url := fmt.Sprintf("%s/%s?fields=status,lat,lon,city,country,regionName,isp,org,as", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugf("Geolocation lookup failed for %s: %v", ip, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debugf("Geolocation lookup for %s returned HTTP %d", ip, resp.StatusCode)
		return nil
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Debugf("Undecodable geolocation response for %s: %v", ip, err)
		return nil
	}
	if body.Status != "success" {
		return nil
	}

	return &models.Geolocation{
		Lat:     body.Lat,
		Lon:     body.Lon,
		City:    body.City,
		Country: body.Country,
		Region:  body.RegionName,
		ISP:     body.ISP,
		Org:     body.Org,
		AS:      body.AS,
	}
}
