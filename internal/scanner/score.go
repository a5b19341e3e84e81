package scanner

// techMap names the service conventionally bound to each well-known port.
var techMap = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	1433:  "MSSQL",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP-Alt",
	27017: "MongoDB",
}

// detectTechnologies maps open ports onto service names. Ports without
// a known service produce no label.
func detectTechnologies(ports []int) []string {
	techs := make([]string, 0, len(ports))
	for _, port := range ports {
		if name, ok := techMap[port]; ok {
			techs = append(techs, name)
		}
	}
	return techs
}

// severityScore averages the positive CVSS scores returned by lookup
// across the target's vulnerabilities. When none of them carry a score,
// the vulnerability count alone sets a floor.
func severityScore(vulns []string, lookup func(id string) (float64, bool)) float64 {
	if len(vulns) == 0 {
		return 0
	}

	var total float64
	var scored int
	for _, id := range vulns {
		if score, ok := lookup(id); ok {
			total += score
			scored++
		}
	}
	if scored > 0 {
		return total / float64(scored)
	}

	switch {
	case len(vulns) >= 10:
		return 9.0
	case len(vulns) >= 5:
		return 7.0
	default:
		return 4.0
	}
}
