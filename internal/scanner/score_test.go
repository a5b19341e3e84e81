package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityScoreAveragesKnownScores(t *testing.T) {
	scores := map[string]float64{
		"CVE-2021-44228": 9.8,
		"CVE-2019-0708":  7.2,
	}
	lookup := func(id string) (float64, bool) {
		s, ok := scores[id]
		return s, ok
	}

	got := severityScore([]string{"CVE-2021-44228", "CVE-2019-0708"}, lookup)
	assert.InDelta(t, 8.5, got, 0.001)
}

func TestSeverityScoreIgnoresUnscoredWhenSomeKnown(t *testing.T) {
	lookup := func(id string) (float64, bool) {
		if id == "CVE-2021-44228" {
			return 9.8, true
		}
		return 0, false
	}

	got := severityScore([]string{"CVE-2021-44228", "CVE-0000-0000"}, lookup)
	assert.InDelta(t, 9.8, got, 0.001)
}

func TestSeverityScoreCountFallback(t *testing.T) {
	none := func(string) (float64, bool) { return 0, false }

	vulns := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "CVE-0000-0000"
		}
		return out
	}

	assert.InDelta(t, 9.0, severityScore(vulns(12), none), 0.001)
	assert.InDelta(t, 9.0, severityScore(vulns(10), none), 0.001)
	assert.InDelta(t, 7.0, severityScore(vulns(6), none), 0.001)
	assert.InDelta(t, 4.0, severityScore(vulns(1), none), 0.001)
	assert.InDelta(t, 0, severityScore(nil, none), 0.001)
}

func TestDetectTechnologies(t *testing.T) {
	techs := detectTechnologies([]int{22, 443, 3306})
	assert.Equal(t, []string{"SSH", "HTTPS", "MySQL"}, techs)
}

func TestDetectTechnologiesSkipsUnknownPorts(t *testing.T) {
	techs := detectTechnologies([]int{22, 12345, 9999})
	assert.Equal(t, []string{"SSH"}, techs)
}

func TestDetectTechnologiesEmpty(t *testing.T) {
	assert.Empty(t, detectTechnologies(nil))
}
