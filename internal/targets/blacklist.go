package targets

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// reservedCIDRs are ranges that are never scanned: private, loopback,
// link-local, multicast, and reserved space.
var reservedCIDRs = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"224.0.0.0/4",
	"240.0.0.0/4",
}

// Blacklist vets targets before dispatch. It always blocks the reserved
// ranges; an optional file adds exact IPs and domain names on top.
type Blacklist struct {
	ranges  []*net.IPNet
	ips     map[string]struct{}
	domains map[string]struct{}
	log     *logrus.Entry
}

// NewBlacklist builds a blacklist covering the reserved ranges only.
func NewBlacklist(log *logrus.Entry) *Blacklist {
	b := &Blacklist{
		ips:     make(map[string]struct{}),
		domains: make(map[string]struct{}),
		log:     log,
	}
	for _, cidr := range reservedCIDRs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err == nil {
			b.ranges = append(b.ranges, ipnet)
		}
	}
	return b
}

// Load adds one entry per line from a blacklist file. Lines that parse
// as IPs block that address; anything else blocks a domain name. An
// unreadable file is logged and skipped, never fatal.
func (b *Blacklist) Load(path string) {
	f, err := os.Open(path)
	if err != nil {
		b.log.Warnf("Blacklist file %s unreadable, skipping: %v", path, err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if ip := net.ParseIP(line); ip != nil {
			b.ips[ip.String()] = struct{}{}
		} else {
			b.domains[strings.ToLower(line)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		b.log.Warnf("Reading blacklist %s: %v", path, err)
	}
}

// Blocked reports whether target may not be scanned, with the reason.
func (b *Blacklist) Blocked(target string) (bool, string) {
	if ip := net.ParseIP(target); ip != nil {
		if _, ok := b.ips[ip.String()]; ok {
			return true, "blacklisted"
		}
		for _, r := range b.ranges {
			if r.Contains(ip) {
				return true, fmt.Sprintf("reserved range %s", r)
			}
		}
		return false, ""
	}

	if _, ok := b.domains[strings.ToLower(target)]; ok {
		return true, "blacklisted"
	}
	return false, ""
}

// Filter splits targets into scannable ones and blocked ones. Blocked
// entries are annotated with their reason.
func (b *Blacklist) Filter(targets []string) (kept, blocked []string) {
	for _, target := range targets {
		if bad, reason := b.Blocked(target); bad {
			blocked = append(blocked, fmt.Sprintf("%s (%s)", target, reason))
			continue
		}
		kept = append(kept, target)
	}
	return kept, blocked
}
