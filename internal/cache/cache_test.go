package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("component", "cache")
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New("", time.Hour, testLog())

	c.Put("1.2.3.4", json.RawMessage(`{"ports":[80]}`))

	got, ok := c.Get("1.2.3.4")
	require.True(t, ok)
	assert.JSONEq(t, `{"ports":[80]}`, string(got))
}

func TestMissingKeyIsMiss(t *testing.T) {
	c := New("", time.Hour, testLog())

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := New("", time.Hour, testLog())

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Put("1.2.3.4", json.RawMessage(`{}`))

	now = now.Add(2 * time.Hour)
	_, ok := c.Get("1.2.3.4")
	assert.False(t, ok)

	// Expired entries are not removed, only hidden.
	assert.Equal(t, 1, c.Len())
}

func TestFlushAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(path, time.Hour, testLog())
	c.Put("1.2.3.4", json.RawMessage(`{"vulns":["CVE-2021-44228"]}`))
	c.Flush()

	reloaded := New(path, time.Hour, testLog())
	got, ok := reloaded.Get("1.2.3.4")
	require.True(t, ok)
	assert.JSONEq(t, `{"vulns":["CVE-2021-44228"]}`, string(got))
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))

	c := New(path, time.Hour, testLog())
	assert.Equal(t, 0, c.Len())
}

func TestMissingFileStartsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.json"), time.Hour, testLog())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryOnlyFlushIsNoop(t *testing.T) {
	c := New("", time.Hour, testLog())
	c.Put("k", json.RawMessage(`{}`))
	c.Flush()
	assert.Equal(t, 1, c.Len())
}
