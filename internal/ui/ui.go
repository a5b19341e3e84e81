// Package ui renders scan output to the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Noro2001/Valac/internal/scanner"
	"github.com/Noro2001/Valac/pkg/models"
)

// DisplayOptions filters which result fields are printed. With all
// fields false, everything is shown.
type DisplayOptions struct {
	Ports bool
	CVEs  bool
	Hosts bool
}

// showAll reports whether no filter is active.
func (o DisplayOptions) showAll() bool {
	return !o.Ports && !o.CVEs && !o.Hosts
}

// UI handles all user interface elements.
type UI struct {
	colors *UIColors
	opts   DisplayOptions
}

// UIColors holds color definitions.
type UIColors struct {
	Blue   *color.Color
	Green  *color.Color
	Red    *color.Color
	Yellow *color.Color
	Cyan   *color.Color
	White  *color.Color
}

// NewUI creates a new UI instance.
func NewUI(opts DisplayOptions) *UI {
	return &UI{
		colors: &UIColors{
			Blue:   color.New(color.FgBlue),
			Green:  color.New(color.FgGreen),
			Red:    color.New(color.FgRed),
			Yellow: color.New(color.FgYellow),
			Cyan:   color.New(color.FgCyan),
			White:  color.New(color.FgWhite),
		},
		opts: opts,
	}
}

// ShowBanner displays the application banner.
func (u *UI) ShowBanner(version string) {
	u.colors.Blue.Println("╔══════════════════════════════════════════════════════════════╗")
	u.colors.Blue.Printf("║                    Valac Scanner %-28s║\n", version)
	u.colors.Blue.Println("║              bulk vulnerability reconnaissance               ║")
	u.colors.Blue.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// Info prints an informational message.
func (u *UI) Info(format string, args ...any) {
	u.colors.Cyan.Printf("  [*] "+format+"\n", args...)
}

// Success prints a success message.
func (u *UI) Success(format string, args ...any) {
	u.colors.Green.Printf("  [+] "+format+"\n", args...)
}

// Warn prints a warning message.
func (u *UI) Warn(format string, args ...any) {
	u.colors.Yellow.Printf("  [!] "+format+"\n", args...)
}

// Error prints an error message.
func (u *UI) Error(format string, args ...any) {
	u.colors.Red.Printf("  [-] "+format+"\n", args...)
}

// riskColor picks the color conventionally used for a risk level.
func (u *UI) riskColor(risk models.RiskLevel) *color.Color {
	switch risk {
	case models.RiskCritical, models.RiskHigh:
		return u.colors.Red
	case models.RiskMedium:
		return u.colors.Yellow
	default:
		return u.colors.Green
	}
}

// ShowResult prints one finished target, honoring the display filters.
func (u *UI) ShowResult(result models.ScanResult) {
	u.riskColor(result.RiskLevel).Printf("  %s  [%s %.1f]\n", result.IP, result.RiskLevel, result.SeverityScore)

	if (u.opts.showAll() || u.opts.Ports) && len(result.Ports) > 0 {
		ports := make([]string, len(result.Ports))
		for i, p := range result.Ports {
			ports[i] = fmt.Sprintf("%d", p)
		}
		u.colors.White.Printf("      ports: %s\n", strings.Join(ports, ", "))
		if len(result.Technologies) > 0 {
			u.colors.White.Printf("      services: %s\n", strings.Join(result.Technologies, ", "))
		}
	}

	if (u.opts.showAll() || u.opts.CVEs) && len(result.Vulns) > 0 {
		u.colors.Red.Printf("      vulns: %s\n", strings.Join(result.Vulns, ", "))
	}

	if (u.opts.showAll() || u.opts.Hosts) && len(result.Hostnames) > 0 {
		u.colors.White.Printf("      hosts: %s\n", strings.Join(result.Hostnames, ", "))
	}

	if u.opts.showAll() && result.Geolocation != nil {
		g := result.Geolocation
		u.colors.White.Printf("      location: %s, %s (%s)\n", g.City, g.Country, g.ISP)
	}
}

// ShowStatistics prints the run summary.
func (u *UI) ShowStatistics(stats scanner.Snapshot) {
	fmt.Println()
	u.colors.Cyan.Println("  ─── Scan Statistics ───")
	u.colors.White.Printf("  Scanned:      %d\n", stats.Scanned)
	u.colors.White.Printf("  Errors:       %d\n", stats.Errors)
	u.colors.White.Printf("  Vulns found:  %d\n", stats.VulnsFound)
	u.colors.White.Printf("  Cache hits:   %d\n", stats.CacheHits)
	u.colors.White.Printf("  Duration:     %s\n", stats.Duration().Round(10*time.Millisecond))

	if len(stats.CriticalTargets) > 0 {
		u.colors.Red.Printf("  High-risk targets (%d):\n", len(stats.CriticalTargets))
		for _, ip := range stats.CriticalTargets {
			u.colors.Red.Printf("    - %s\n", ip)
		}
	}
}
