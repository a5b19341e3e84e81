package models

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// TargetType represents the kind of input a scan target was given as.
type TargetType string

const (
	TargetTypeIP      TargetType = "ip"
	TargetTypeCIDR    TargetType = "cidr"
	TargetTypeDomain  TargetType = "domain"
	TargetTypeUnknown TargetType = "unknown"
)

var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)+$`)

// Target is a single scan input before expansion to concrete addresses.
type Target struct {
	Value string     `json:"value" yaml:"value"`
	Type  TargetType `json:"type" yaml:"type"`
}

// ParseTarget classifies a raw input string.
func ParseTarget(input string) Target {
	input = strings.TrimSpace(input)

	if input == "" || strings.HasPrefix(input, "#") {
		return Target{Value: input, Type: TargetTypeUnknown}
	}

	if strings.Contains(input, "/") {
		if _, _, err := net.ParseCIDR(input); err == nil {
			return Target{Value: input, Type: TargetTypeCIDR}
		}
	}

	if net.ParseIP(input) != nil {
		return Target{Value: input, Type: TargetTypeIP}
	}

	if domainRegex.MatchString(input) {
		return Target{Value: input, Type: TargetTypeDomain}
	}

	return Target{Value: input, Type: TargetTypeUnknown}
}

// Hosts expands a CIDR target into its usable host addresses. For IPv4
// networks of /30 and wider the network and broadcast addresses are
// excluded; /31 and /32 keep every address.
func (t Target) Hosts() ([]string, error) {
	if t.Type != TargetTypeCIDR {
		return nil, fmt.Errorf("target %q is not a CIDR range", t.Value)
	}

	ip, ipnet, err := net.ParseCIDR(t.Value)
	if err != nil {
		return nil, err
	}

	var ips []string
	for ip := ip.Mask(ipnet.Mask); ipnet.Contains(ip); inc(ip) {
		ips = append(ips, ip.String())
	}

	ones, bits := ipnet.Mask.Size()
	if bits == 32 && ones < 31 && len(ips) > 2 {
		ips = ips[1 : len(ips)-1]
	}

	return ips, nil
}

// inc increments an IP address in place.
func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
