package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("component", "targets")
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFromFileSkipsCommentsAndBlanks(t *testing.T) {
	path := writeTemp(t, "# header\n1.1.1.1\n\n2.2.2.2\n# trailing\n")

	got, err := FromFile(path, testLog())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, got)
}

func TestFromFileExpandsCIDR(t *testing.T) {
	path := writeTemp(t, "192.168.1.0/30\n")

	got, err := FromFile(path, testLog())
	require.NoError(t, err)

	// /30 has four addresses; network and broadcast are excluded.
	assert.Equal(t, []string{"192.168.1.1", "192.168.1.2"}, got)
}

func TestFromFileSkipsGarbageLines(t *testing.T) {
	path := writeTemp(t, "1.1.1.1\nnot a target at all!!\n2.2.2.2\n")

	got, err := FromFile(path, testLog())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, got)
}

func TestFromFileDeduplicates(t *testing.T) {
	path := writeTemp(t, "1.1.1.1\n1.1.1.1\n1.1.1.1\n")

	got, err := FromFile(path, testLog())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1"}, got)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "absent.txt"), testLog())
	assert.Error(t, err)
}

func TestSingle(t *testing.T) {
	got, err := Single("1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", got)

	got, err = Single(" 2001:db8::1 ")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", got)
}

func TestSingleRejectsNonIP(t *testing.T) {
	for _, bad := range []string{"999.1.1.1", "example.com", "10.0.0.0/24", ""} {
		_, err := Single(bad)
		assert.Error(t, err, "expected %q rejected", bad)
	}
}

func TestFromCIDR(t *testing.T) {
	got, err := FromCIDR("10.0.0.0/30")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, got)
}

func TestFromCIDRRejectsNonCIDR(t *testing.T) {
	_, err := FromCIDR("10.0.0.1")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" 2.2.2.2 ", "1.1.1.1", "2.2.2.2", "", "1.1.1.1"})
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, got)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}
