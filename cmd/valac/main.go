package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Noro2001/Valac/internal/cache"
	"github.com/Noro2001/Valac/internal/config"
	"github.com/Noro2001/Valac/internal/database"
	"github.com/Noro2001/Valac/internal/fetch"
	"github.com/Noro2001/Valac/internal/geo"
	"github.com/Noro2001/Valac/internal/httpclient"
	"github.com/Noro2001/Valac/internal/identity"
	"github.com/Noro2001/Valac/internal/ratelimit"
	"github.com/Noro2001/Valac/internal/report"
	"github.com/Noro2001/Valac/internal/scanner"
	"github.com/Noro2001/Valac/internal/targets"
	"github.com/Noro2001/Valac/internal/ui"
	"github.com/Noro2001/Valac/pkg/models"
)

const version = "1.0.0"

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:     "valac",
		Short:   "Bulk vulnerability reconnaissance scanner",
		Long:    "Valac scans IP ranges against Shodan InternetDB and classifies targets by vulnerability severity.",
		Version: version,
	}

	root.AddCommand(newScanCommand())
	root.AddCommand(newHistoryCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type scanFlags struct {
	configPath string
	file       string
	ip         string
	domain     string
	cidr       string
	dnsFile    string
	blacklist  string

	threads int
	timeout time.Duration
	delay   time.Duration
	rps     float64

	bypass         bool
	sessions       int
	callsPerMinute int
	cacheFile      string
	proxyFile      string
	retries        int

	jsonl    string
	csv      string
	xml      string
	dbPath   string
	webhook  string
	geoOn    bool
	stats    bool
	showPort bool
	showCVE  bool
	showHost bool
}

func newScanCommand() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan targets for known vulnerabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "file with one target per line")
	cmd.Flags().StringVar(&flags.ip, "ip", "", "single IP address to scan")
	cmd.Flags().StringVar(&flags.domain, "domain", "", "domain to resolve and scan")
	cmd.Flags().StringVar(&flags.cidr, "cidr", "", "CIDR range to expand and scan")
	cmd.Flags().StringVar(&flags.dnsFile, "dns-file", "", "file with one domain per line")
	cmd.Flags().StringVar(&flags.blacklist, "blacklist", "", "file with IPs and domains to never scan")

	cmd.Flags().IntVarP(&flags.threads, "threads", "t", 0, "worker count (default from config)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "per-request timeout")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "fixed pause between requests on the direct path")
	cmd.Flags().Float64Var(&flags.rps, "rps", 0, "requests per second on the direct path (0 = unlimited)")

	cmd.Flags().BoolVar(&flags.bypass, "bypass", false, "enable rate-limit evasion mode")
	cmd.Flags().IntVar(&flags.sessions, "sessions", 0, "identity pool size in bypass mode")
	cmd.Flags().IntVar(&flags.callsPerMinute, "rpm", 0, "calls-per-minute ceiling in bypass mode")
	cmd.Flags().StringVar(&flags.cacheFile, "cache-file", "", "response cache file in bypass mode")
	cmd.Flags().StringVar(&flags.proxyFile, "proxy-file", "", "file with one proxy URL per line")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "fetch attempts per target in bypass mode")

	cmd.Flags().StringVar(&flags.jsonl, "jsonl", "", "stream results to a JSONL file")
	cmd.Flags().StringVar(&flags.csv, "csv", "", "stream results to a CSV file")
	cmd.Flags().StringVar(&flags.xml, "xml", "", "write results to an XML file")
	cmd.Flags().StringVar(&flags.dbPath, "database", "", "persist results to a SQLite database")
	cmd.Flags().StringVar(&flags.webhook, "webhook", "", "POST high-risk alerts to this URL")
	cmd.Flags().BoolVar(&flags.geoOn, "geolocation", false, "look up target locations")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print statistics after the run")
	cmd.Flags().BoolVar(&flags.showPort, "ports", false, "show only port details")
	cmd.Flags().BoolVar(&flags.showCVE, "cves", false, "show only vulnerability details")
	cmd.Flags().BoolVar(&flags.showHost, "hosts", false, "show only hostname details")

	return cmd
}

func runScan(cmd *cobra.Command, flags scanFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd, flags)

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	term := ui.NewUI(ui.DisplayOptions{Ports: flags.showPort, CVEs: flags.showCVE, Hosts: flags.showHost})
	term.ShowBanner(version)

	list, err := collectTargets(flags)
	if err != nil {
		return err
	}

	bl := targets.NewBlacklist(log.WithField("component", "blacklist"))
	if cfg.Scan.BlacklistFile != "" {
		bl.Load(cfg.Scan.BlacklistFile)
	}
	list, blocked := bl.Filter(list)
	if len(blocked) > 0 {
		term.Warn("Skipping %d blacklisted targets", len(blocked))
		for i, b := range blocked {
			if i == 5 {
				term.Warn("  ... and %d more", len(blocked)-5)
				break
			}
			term.Warn("  %s", b)
		}
	}

	if len(list) == 0 {
		return fmt.Errorf("no valid targets to scan")
	}
	term.Info("Loaded %d targets", len(list))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, hostCache := buildResolver(cfg)
	cveCache := cache.New("", time.Duration(cfg.Bypass.CacheHours)*time.Hour, log.WithField("component", "cve-cache"))
	cves := fetch.NewCVEClient(
		httpclient.New(cfg.Scan.Timeout.Std(), nil),
		cfg.API.CVEURL, cfg.Scan.Timeout.Std(), cveCache,
		log.WithField("component", "cve"),
	)

	var geoClient scanner.GeoLookup
	if cfg.Geolocation {
		geoClient = geo.NewClient(nil, "", log.WithField("component", "geo"))
	}

	hooks, closers, err := buildHooks(ctx, cfg, term)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	coord := scanner.New(resolver, cves, geoClient, hooks, scanner.Options{
		Workers:      cfg.Scan.Threads,
		TargetBudget: cfg.Scan.TargetBudget.Std(),
	}, log.WithField("component", "scanner"))

	results, stats := coord.Run(ctx, list)

	if hostCache != nil {
		hostCache.Flush()
	}

	if cfg.Report.XML != "" {
		if err := report.WriteXML(cfg.Report.XML, results); err != nil {
			term.Error("XML report failed: %v", err)
		}
	}

	snapshot := stats.Snapshot()
	if ctx.Err() != nil {
		term.Warn("Scan interrupted: %d of %d targets completed", snapshot.Scanned, len(list))
	} else {
		term.Success("Scan complete: %d targets, %d results", snapshot.Scanned, len(results))
	}
	if flags.stats {
		term.ShowStatistics(snapshot)
	}

	return nil
}

// applyFlags lets explicitly-set command-line flags win over the config
// file and environment.
func applyFlags(cfg *config.Config, cmd *cobra.Command, flags scanFlags) {
	if cmd.Flags().Changed("threads") {
		cfg.Scan.Threads = flags.threads
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Scan.Timeout = config.Duration(flags.timeout)
	}
	if cmd.Flags().Changed("delay") {
		cfg.Scan.Delay = config.Duration(flags.delay)
	}
	if cmd.Flags().Changed("rps") {
		cfg.Scan.RPS = flags.rps
	}
	if cmd.Flags().Changed("blacklist") {
		cfg.Scan.BlacklistFile = flags.blacklist
	}
	if cmd.Flags().Changed("bypass") {
		cfg.Bypass.Enabled = flags.bypass
	}
	if cmd.Flags().Changed("sessions") {
		cfg.Bypass.Sessions = flags.sessions
	}
	if cmd.Flags().Changed("rpm") {
		cfg.Bypass.CallsPerMinute = flags.callsPerMinute
	}
	if cmd.Flags().Changed("cache-file") {
		cfg.Bypass.CacheFile = flags.cacheFile
	}
	if cmd.Flags().Changed("proxy-file") {
		cfg.Bypass.ProxyFile = flags.proxyFile
	}
	if cmd.Flags().Changed("retries") {
		cfg.Bypass.Retries = flags.retries
	}
	if cmd.Flags().Changed("jsonl") {
		cfg.Report.JSONL = flags.jsonl
	}
	if cmd.Flags().Changed("csv") {
		cfg.Report.CSV = flags.csv
	}
	if cmd.Flags().Changed("xml") {
		cfg.Report.XML = flags.xml
	}
	if cmd.Flags().Changed("database") {
		cfg.Report.Database = flags.dbPath
	}
	if cmd.Flags().Changed("webhook") {
		cfg.Report.Webhook = flags.webhook
	}
	if cmd.Flags().Changed("geolocation") {
		cfg.Geolocation = flags.geoOn
	}
}

// collectTargets merges every input source into one normalized list.
func collectTargets(flags scanFlags) ([]string, error) {
	tlog := log.WithField("component", "targets")
	var list []string

	if flags.file != "" {
		fromFile, err := targets.FromFile(flags.file, tlog)
		if err != nil {
			return nil, err
		}
		list = append(list, fromFile...)
	}
	if flags.ip != "" {
		ip, err := targets.Single(flags.ip)
		if err != nil {
			return nil, err
		}
		list = append(list, ip)
	}
	if flags.cidr != "" {
		hosts, err := targets.FromCIDR(flags.cidr)
		if err != nil {
			return nil, err
		}
		list = append(list, hosts...)
	}
	if flags.domain != "" {
		ips, err := targets.ResolveDomain(flags.domain)
		if err != nil {
			return nil, err
		}
		list = append(list, ips...)
	}
	if flags.dnsFile != "" {
		ips, err := targets.FromDomainFile(flags.dnsFile, tlog)
		if err != nil {
			return nil, err
		}
		list = append(list, ips...)
	}

	return targets.Normalize(list), nil
}

// buildResolver picks the bypass or direct fetch path from the config.
// The returned cache is non-nil only on the bypass path and must be
// flushed after the run.
func buildResolver(cfg *config.Config) (fetch.Resolver, *cache.Cache) {
	if !cfg.Bypass.Enabled {
		client := httpclient.New(cfg.Scan.Timeout.Std(), nil)
		return fetch.NewDirect(client, cfg.API.HostURL, cfg.Scan.Timeout.Std(), cfg.Scan.Delay.Std(), cfg.Scan.RPS, log.WithField("component", "fetch")), nil
	}

	proxies := identity.LoadProxyPool(cfg.Bypass.ProxyFile, log.WithField("component", "proxy"))
	client := httpclient.New(cfg.Scan.Timeout.Std(), proxies.ProxyFunc())
	hostCache := cache.New(cfg.Bypass.CacheFile, time.Duration(cfg.Bypass.CacheHours)*time.Hour, log.WithField("component", "cache"))

	orch := fetch.NewOrchestrator(
		client,
		identity.NewPool(cfg.Bypass.Sessions),
		ratelimit.New(cfg.Bypass.CallsPerMinute),
		hostCache,
		fetch.Options{
			HostURL:  cfg.API.HostURL,
			Retries:  cfg.Bypass.Retries,
			MinDelay: cfg.Bypass.MinDelay.Std(),
			MaxDelay: cfg.Bypass.MaxDelay.Std(),
			Timeout:  cfg.Scan.Timeout.Std(),
		},
		log.WithField("component", "fetch"),
	)
	return orch, hostCache
}

// buildHooks composes the per-result side effects: terminal output,
// streaming writers, history persistence, and webhook alerts.
func buildHooks(ctx context.Context, cfg *config.Config, term *ui.UI) (scanner.Hooks, []func(), error) {
	var (
		onResult []func(models.ScanResult)
		onAlert  []func(models.ScanResult)
		closers  []func()
	)

	onResult = append(onResult, term.ShowResult)

	if cfg.Report.JSONL != "" {
		w, err := report.NewJSONLWriter(cfg.Report.JSONL)
		if err != nil {
			return scanner.Hooks{}, nil, err
		}
		closers = append(closers, func() { w.Close() })
		onResult = append(onResult, func(r models.ScanResult) {
			if err := w.Write(r); err != nil {
				log.Debugf("JSONL write failed: %v", err)
			}
		})
	}

	if cfg.Report.CSV != "" {
		w, err := report.NewCSVWriter(cfg.Report.CSV)
		if err != nil {
			return scanner.Hooks{}, nil, err
		}
		closers = append(closers, func() { w.Close() })
		onResult = append(onResult, func(r models.ScanResult) {
			if err := w.Write(r); err != nil {
				log.Debugf("CSV write failed: %v", err)
			}
		})
	}

	if cfg.Report.Database != "" {
		db, err := database.Open(cfg.Report.Database)
		if err != nil {
			return scanner.Hooks{}, nil, err
		}
		closers = append(closers, func() { db.Close() })
		runID := uuid.New().String()
		onResult = append(onResult, func(r models.ScanResult) {
			if err := db.SaveResult(runID, r); err != nil {
				log.Debugf("History save failed: %v", err)
			}
		})
	}

	if cfg.Report.Webhook != "" {
		hook := report.NewWebhook(cfg.Report.Webhook, log.WithField("component", "webhook"))
		onAlert = append(onAlert, func(r models.ScanResult) { hook.Send(ctx, r) })
	}

	hooks := scanner.Hooks{
		OnResult: func(r models.ScanResult) {
			for _, fn := range onResult {
				fn(r)
			}
		},
	}
	if len(onAlert) > 0 {
		hooks.OnAlert = func(r models.ScanResult) {
			for _, fn := range onAlert {
				fn(r)
			}
		}
	}

	return hooks, closers, nil
}

func newHistoryCommand() *cobra.Command {
	var (
		dbPath     string
		ip         string
		limit      int
		runs       bool
		purgeOlder time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query past scan results",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			term := ui.NewUI(ui.DisplayOptions{})

			if purgeOlder > 0 {
				removed, err := db.PurgeOlderThan(purgeOlder)
				if err != nil {
					return err
				}
				term.Info("Purged %d history rows older than %s", removed, purgeOlder)
				return nil
			}

			if runs {
				summaries, err := db.RunSummaries(limit)
				if err != nil {
					return err
				}
				for _, s := range summaries {
					term.Info("%s  targets=%d high-risk=%d started=%s", s.RunID, s.Targets, s.Critical, s.StartedAt)
				}
				return nil
			}

			var rows []database.HistoryRow
			if ip != "" {
				rows, err = db.ResultsByTarget(ip)
			} else {
				rows, err = db.RecentResults(limit)
			}
			if err != nil {
				return err
			}

			for _, row := range rows {
				term.ShowResult(row.Result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "database", "valac.db", "path to the history database")
	cmd.Flags().StringVar(&ip, "ip", "", "show history for one IP")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show")
	cmd.Flags().BoolVar(&runs, "runs", false, "list runs instead of results")
	cmd.Flags().DurationVar(&purgeOlder, "purge-older-than", 0, "delete history rows older than this age")

	return cmd
}
