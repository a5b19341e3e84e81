// Package targets loads and normalizes scan inputs from files, single
// values, and DNS names into a flat list of IP addresses.
package targets

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Noro2001/Valac/pkg/models"
)

// FromFile reads one target per line, skipping blanks and # comments.
// CIDR lines expand to their host addresses; lines that parse as
// neither IP, CIDR, nor domain are skipped with a warning.
func FromFile(path string, log *logrus.Entry) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening target file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		t := models.ParseTarget(line)
		switch t.Type {
		case models.TargetTypeIP:
			out = append(out, t.Value)
		case models.TargetTypeCIDR:
			hosts, err := t.Hosts()
			if err != nil {
				log.Warnf("Skipping CIDR %s: %v", line, err)
				continue
			}
			out = append(out, hosts...)
		case models.TargetTypeDomain:
			ips, err := ResolveDomain(t.Value)
			if err != nil {
				log.Warnf("Skipping domain %s: %v", line, err)
				continue
			}
			out = append(out, ips...)
		default:
			log.Warnf("Skipping unrecognized target %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading target file: %w", err)
	}

	return Normalize(out), nil
}

// Single validates one literal IP target.
func Single(ip string) (string, error) {
	t := models.ParseTarget(ip)
	if t.Type != models.TargetTypeIP {
		return "", fmt.Errorf("invalid IP address: %q", ip)
	}
	return t.Value, nil
}

// FromCIDR expands a CIDR range into its host addresses.
func FromCIDR(cidr string) ([]string, error) {
	t := models.ParseTarget(cidr)
	if t.Type != models.TargetTypeCIDR {
		return nil, fmt.Errorf("invalid CIDR range: %q", cidr)
	}
	return t.Hosts()
}

// ResolveDomain resolves a DNS name into its IP addresses.
func ResolveDomain(domain string) ([]string, error) {
	addrs, err := net.LookupHost(domain)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", domain, err)
	}

	var ips []string
	for _, addr := range addrs {
		if net.ParseIP(addr) != nil {
			ips = append(ips, addr)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", domain)
	}
	return ips, nil
}

// FromDomainFile resolves one domain per line into IP addresses.
// Domains that fail to resolve are skipped with a warning.
func FromDomainFile(path string, log *logrus.Entry) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening domain file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ips, err := ResolveDomain(line)
		if err != nil {
			log.Warnf("Skipping domain %s: %v", line, err)
			continue
		}
		out = append(out, ips...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading domain file: %w", err)
	}

	return Normalize(out), nil
}

// Normalize trims, deduplicates, and sorts a target list.
func Normalize(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
