package scanner

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/internal/fetch"
	"github.com/Noro2001/Valac/pkg/models"
)

const (
	memSampleEvery = 100
	memWarnBytes   = 2 << 30
)

// CVEDetailer resolves one vulnerability id into its detail record.
type CVEDetailer interface {
	Details(ctx context.Context, id string) map[string]any
}

// GeoLookup resolves an IP's location, returning nil when unavailable.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) *models.Geolocation
}

// Hooks are callbacks the coordinator fires from worker goroutines as
// targets complete. Either may be nil. Implementations must be safe for
// concurrent use.
type Hooks struct {
	OnResult func(models.ScanResult)
	OnAlert  func(models.ScanResult)
}

// Options configures one scan run.
type Options struct {
	Workers      int
	TargetBudget time.Duration
}

// Coordinator drives the worker pool that resolves, scores, and records
// every target of a run.
type Coordinator struct {
	resolver fetch.Resolver
	cves     CVEDetailer
	score    func(details map[string]any) (float64, bool)
	geo      GeoLookup
	hooks    Hooks
	opts     Options
	log      *logrus.Entry

	mu      sync.Mutex
	results []models.ScanResult
	stats   *Stats
}

// New builds a coordinator. cves and geo may be nil to disable severity
// enrichment and location lookups respectively.
func New(resolver fetch.Resolver, cves CVEDetailer, geo GeoLookup, hooks Hooks, opts Options, log *logrus.Entry) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = 50
	}
	if opts.TargetBudget <= 0 {
		opts.TargetBudget = 60 * time.Second
	}
	return &Coordinator{
		resolver: resolver,
		cves:     cves,
		score:    fetch.Score,
		geo:      geo,
		hooks:    hooks,
		opts:     opts,
		stats:    NewStats(),
		log:      log,
	}
}

// Run scans every target and returns the collected results with the
// run's statistics. Cancelling ctx stops dispatching new targets;
// in-flight targets finish and their results are kept.
func (c *Coordinator) Run(ctx context.Context, targets []string) ([]models.ScanResult, *Stats) {
	feed := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < c.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range feed {
				c.processTarget(ctx, target)
			}
		}()
	}

dispatch:
	for _, target := range targets {
		select {
		case <-ctx.Done():
			c.log.Warn("Scan interrupted, waiting for in-flight targets")
			break dispatch
		case feed <- target:
		}
	}
	close(feed)
	wg.Wait()

	c.stats.finish()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results, c.stats
}

func (c *Coordinator) processTarget(ctx context.Context, target string) {
	started := time.Now()

	res, err := c.resolver.Resolve(ctx, target)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrNotFound):
			// No record for the target is a completed scan.
			c.stats.addScanned()
		case ctx.Err() != nil:
			// Cancelled mid-target; counted neither way.
		default:
			c.log.Debugf("Scan failed for %s: %v", target, err)
			c.stats.addError()
		}
		return
	}

	if res.Cached {
		c.stats.addCacheHit()
	}

	rec := res.Record
	score := c.severityFor(ctx, rec.Vulns)
	risk := models.RiskLevelFor(score)

	result := models.ScanResult{
		IP:            target,
		Ports:         rec.Ports,
		Vulns:         rec.Vulns,
		Hostnames:     rec.Hostnames,
		CPE:           rec.CPE,
		Tags:          rec.Tags,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ResponseTime:  time.Since(started).Seconds(),
		Technologies:  detectTechnologies(rec.Ports),
		SeverityScore: score,
		RiskLevel:     risk,
	}

	if c.geo != nil {
		result.Geolocation = c.geo.Lookup(ctx, target)
	}

	c.mu.Lock()
	c.results = append(c.results, result)
	c.mu.Unlock()

	c.stats.addScanned()
	c.stats.addVulns(len(rec.Vulns))
	if risk == models.RiskHigh || risk == models.RiskCritical {
		c.stats.addCritical(target)
		if c.hooks.OnAlert != nil {
			c.hooks.OnAlert(result)
		}
	}
	if c.hooks.OnResult != nil {
		c.hooks.OnResult(result)
	}

	if elapsed := time.Since(started); elapsed > c.opts.TargetBudget {
		c.log.Warnf("Target %s exceeded time budget (%s)", target, elapsed.Round(time.Millisecond))
		c.stats.addError()
	}

	c.sampleMemory()
}

// severityFor resolves each vulnerability's details and aggregates them
// into one score for the target.
func (c *Coordinator) severityFor(ctx context.Context, vulns []string) float64 {
	if c.cves == nil {
		return severityScore(vulns, func(string) (float64, bool) { return 0, false })
	}
	return severityScore(vulns, func(id string) (float64, bool) {
		details := c.cves.Details(ctx, id)
		if details == nil {
			return 0, false
		}
		return c.score(details)
	})
}

// sampleMemory records heap usage every hundred completed scans and
// warns when allocation crosses two gigabytes.
func (c *Coordinator) sampleMemory() {
	if c.stats.Snapshot().Scanned%memSampleEvery != 0 {
		return
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	c.stats.addMemSample(ms.Alloc)
	if ms.Alloc > memWarnBytes {
		c.log.Warnf("High memory usage: %d MB allocated", ms.Alloc>>20)
	}
}
