package models

// RiskLevel classifies a target by its aggregate severity score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevelFor maps a 0-10 severity score onto a risk level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 9.0:
		return RiskCritical
	case score >= 7.0:
		return RiskHigh
	case score >= 4.0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// HostRecord is the JSON payload returned by the InternetDB lookup
// endpoint for a single IP.
type HostRecord struct {
	IP        string   `json:"ip,omitempty" yaml:"ip,omitempty"`
	Ports     []int    `json:"ports" yaml:"ports"`
	Vulns     []string `json:"vulns" yaml:"vulns"`
	Hostnames []string `json:"hostnames" yaml:"hostnames"`
	CPE       []string `json:"cpe" yaml:"cpe"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// Geolocation holds the optional location attributes of a scanned IP.
type Geolocation struct {
	Lat     float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
	City    string  `json:"city,omitempty" yaml:"city,omitempty"`
	Country string  `json:"country,omitempty" yaml:"country,omitempty"`
	Region  string  `json:"region,omitempty" yaml:"region,omitempty"`
	ISP     string  `json:"isp,omitempty" yaml:"isp,omitempty"`
	Org     string  `json:"org,omitempty" yaml:"org,omitempty"`
	AS      string  `json:"as,omitempty" yaml:"as,omitempty"`
}

// ScanResult is one finished record per successfully scanned target.
// It is immutable once appended to the run's result collection.
type ScanResult struct {
	IP            string       `json:"ip" yaml:"ip"`
	Ports         []int        `json:"ports" yaml:"ports"`
	Vulns         []string     `json:"vulns" yaml:"vulns"`
	Hostnames     []string     `json:"hostnames" yaml:"hostnames"`
	CPE           []string     `json:"cpe" yaml:"cpe"`
	Tags          []string     `json:"tags" yaml:"tags"`
	Timestamp     string       `json:"timestamp" yaml:"timestamp"`
	ResponseTime  float64      `json:"response_time" yaml:"response_time"`
	Geolocation   *Geolocation `json:"geolocation,omitempty" yaml:"geolocation,omitempty"`
	Technologies  []string     `json:"technologies" yaml:"technologies"`
	SeverityScore float64      `json:"severity_score" yaml:"severity_score"`
	RiskLevel     RiskLevel    `json:"risk_level" yaml:"risk_level"`
}
