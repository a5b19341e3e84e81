package scanner

import (
	"sync"
	"time"
)

// Stats accumulates run-wide counters shared by all workers.
type Stats struct {
	mu              sync.Mutex
	scanned         int
	errors          int
	vulnsFound      int
	cacheHits       int
	criticalTargets []string
	memSamples      []uint64
	start           time.Time
	end             time.Time
}

// NewStats starts a fresh counter set stamped with the run's start time.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) addScanned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanned++
}

func (s *Stats) addError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors++
}

func (s *Stats) addVulns(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vulnsFound += n
}

func (s *Stats) addCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

func (s *Stats) addCritical(ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criticalTargets = append(s.criticalTargets, ip)
}

func (s *Stats) addMemSample(bytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memSamples = append(s.memSamples, bytes)
}

func (s *Stats) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = time.Now()
}

// Snapshot is a consistent copy of the counters at one point in time.
type Snapshot struct {
	Scanned         int
	Errors          int
	VulnsFound      int
	CacheHits       int
	CriticalTargets []string
	MemSamples      []uint64
	Start           time.Time
	End             time.Time
}

// Snapshot returns a copy of the current counters. Slices are cloned so
// the caller can hold them after workers keep running.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Scanned:         s.scanned,
		Errors:          s.errors,
		VulnsFound:      s.vulnsFound,
		CacheHits:       s.cacheHits,
		CriticalTargets: append([]string(nil), s.criticalTargets...),
		MemSamples:      append([]uint64(nil), s.memSamples...),
		Start:           s.start,
		End:             s.end,
	}
}

// Duration is the wall time of the run, live until finish is called.
func (sn Snapshot) Duration() time.Duration {
	end := sn.End
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(sn.Start)
}
