package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/internal/source"
)

const testManifest = `
channels:
  stable:
    latestVersion: v1.4
    url: https://example.com/download
    releaseNotes: |
      Faster sync.
  beta:
    latestVersion: 2.0.0-beta.1
    critical: true
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := ParseManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(m).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "stable"}, m.Names())

	doc, ok := m.Feed("stable")
	require.True(t, ok)
	assert.Equal(t, "1.4.0", doc.LatestVersion)
	assert.Equal(t, "https://example.com/download", doc.URL)
	assert.False(t, doc.Critical)

	_, ok = m.Feed("nightly")
	assert.False(t, ok)
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"no channels":   "channels: {}\n",
		"bad version":   "channels:\n  stable:\n    latestVersion: soon\n",
		"unknown field": "channels:\n  stable:\n    latestVersion: 1.0.0\n    mandatory: true\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Len(t, m.Channels, 2)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServerChannel(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/channels/beta")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var doc source.Feed
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "2.0.0-beta.1", doc.LatestVersion)
	assert.True(t, doc.Critical)
}

func TestServerUnknownChannel(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/channels/nightly")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "nightly")
}

func TestServerHealthAndList(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/channels")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"beta", "stable"}, list["channels"])
}

func TestSetManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	s := NewServer(m)

	next, err := ParseManifest(strings.NewReader("channels:\n  stable:\n    latestVersion: 9.0.0\n"))
	require.NoError(t, err)
	s.SetManifest(next)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/channels/stable", nil))
	assert.Contains(t, rec.Body.String(), `"latestVersion":"9.0.0"`)
}

// The served document is exactly what the JSON source consumes.
func TestServerFeedsJSONSource(t *testing.T) {
	srv := newTestServer(t)

	src := source.NewJSON(srv.URL+"/v1/channels/stable", source.StaticPackage{Version: "1.3.9"})
	info, err := src.FetchUpdateInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", info.LatestVersion.String())
	assert.True(t, info.IsUpdateAvailable())
	assert.Equal(t, "Faster sync.", info.ReleaseNotes)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(testManifest))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(m).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	assert.NoError(t, <-done)
}
