package identity

import (
	"net/http"
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
	return log.WithField("component", "identity")
}

func TestPoolRotationWrapsAround(t *testing.T) {
	p := NewPool(3)
	require.Equal(t, 3, p.Size())

	first := p.Next()
	p.Next()
	p.Next()
	wrapped := p.Next()

	assert.Equal(t, first, wrapped)
}

func TestPoolDefaultSize(t *testing.T) {
	p := NewPool(0)
	assert.Equal(t, 10, p.Size())
}

func TestIdentityAppliesHeaders(t *testing.T) {
	id := Identity{UserAgent: "test-agent", AcceptLanguage: "en-US"}

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	id.Apply(req)

	assert.Equal(t, "test-agent", req.Header.Get("User-Agent"))
	assert.Equal(t, "en-US", req.Header.Get("Accept-Language"))
	assert.NotEmpty(t, req.Header.Get("Accept"))
}

func TestLoadProxyPoolMissingFileDisablesProxying(t *testing.T) {
	p := LoadProxyPool(filepath.Join(t.TempDir(), "absent.txt"), testLog())

	assert.Equal(t, 0, p.Size())
	assert.Nil(t, p.Next())
	assert.Nil(t, p.ProxyFunc())
}

func TestLoadProxyPoolEmptyPathDisablesProxying(t *testing.T) {
	p := LoadProxyPool("", testLog())
	assert.Equal(t, 0, p.Size())
}

func TestLoadProxyPoolSkipsCommentsAndRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "# egress proxies\nhttp://proxy-a:8080\n\nhttp://proxy-b:8080\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p := LoadProxyPool(path, testLog())
	require.Equal(t, 2, p.Size())

	assert.Equal(t, "proxy-a:8080", p.Next().Host)
	assert.Equal(t, "proxy-b:8080", p.Next().Host)
	assert.Equal(t, "proxy-a:8080", p.Next().Host)
}
