// Package report writes scan results to the supported output formats
// and delivers webhook alerts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Noro2001/Valac/pkg/models"
)

// JSONLWriter appends one JSON object per line as results stream in.
// Safe for concurrent use by worker goroutines.
type JSONLWriter struct {
	mu sync.Mutex
	f  *os.File
}

// NewJSONLWriter truncates or creates the output file.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating JSONL output: %w", err)
	}
	return &JSONLWriter{f: f}, nil
}

// Write appends one result line.
func (w *JSONLWriter) Write(result models.ScanResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.f.Write(append(data, '\n'))
	return err
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// CSVWriter streams results as CSV rows under a fixed header.
// Safe for concurrent use by worker goroutines.
type CSVWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

var csvHeader = []string{"ip", "timestamp", "ports", "vulns", "hostnames", "severity_score", "risk_level", "response_time"}

// NewCSVWriter truncates or creates the output file and writes the header.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating CSV output: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVWriter{f: f, w: w}, nil
}

// Write appends one result row.
func (w *CSVWriter) Write(result models.ScanResult) error {
	ports := make([]string, len(result.Ports))
	for i, p := range result.Ports {
		ports[i] = strconv.Itoa(p)
	}

	row := []string{
		result.IP,
		result.Timestamp,
		strings.Join(ports, ";"),
		strings.Join(result.Vulns, ";"),
		strings.Join(result.Hostnames, ";"),
		strconv.FormatFloat(result.SeverityScore, 'f', 1, 64),
		string(result.RiskLevel),
		strconv.FormatFloat(result.ResponseTime, 'f', 3, 64),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(row)
}

// Close flushes buffered rows and closes the file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

type xmlResult struct {
	IP            string           `xml:"ip"`
	Timestamp     string           `xml:"timestamp"`
	Ports         []int            `xml:"ports>port"`
	Vulns         []string         `xml:"vulns>vuln"`
	Hostnames     []string         `xml:"hostnames>hostname"`
	Technologies  []string         `xml:"technologies>technology"`
	SeverityScore float64          `xml:"severity_score"`
	RiskLevel     models.RiskLevel `xml:"risk_level"`
	ResponseTime  float64          `xml:"response_time"`
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"scan_results"`
	Results []xmlResult `xml:"result"`
}

// WriteXML writes the whole result set as one XML document. Unlike the
// streaming writers it is called once, after the run completes.
func WriteXML(path string, results []models.ScanResult) error {
	doc := xmlDocument{Results: make([]xmlResult, 0, len(results))}
	for _, r := range results {
		doc.Results = append(doc.Results, xmlResult{
			IP:            r.IP,
			Timestamp:     r.Timestamp,
			Ports:         r.Ports,
			Vulns:         r.Vulns,
			Hostnames:     r.Hostnames,
			Technologies:  r.Technologies,
			SeverityScore: r.SeverityScore,
			RiskLevel:     r.RiskLevel,
			ResponseTime:  r.ResponseTime,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding XML report: %w", err)
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0644)
}
