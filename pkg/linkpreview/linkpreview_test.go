package linkpreview

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head>
<title>Sleep and Mood - Example Health</title>
<meta property="og:title" content="How Sleep Shapes Your Mood">
<meta property="og:site_name" content="Example Health">
<meta name="description" content="A look at sleep and emotional regulation.">
</head><body>
<nav><p>Home About</p></nav>
<article>
<p>Sleep deprivation amplifies the brain's emotional response.</p>
<p>Even one bad night can make stress feel heavier.</p>
</article>
<script>var tracking = true;</script>
</body></html>`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger, _ := test.NewNullLogger()
	return NewFetcher(Options{HTTPClient: server.Client()}, logger), server.URL
}

func TestPreview(t *testing.T) {
	fetcher, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "TherapyPunchBot")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})

	preview, err := fetcher.Preview(t.Context(), url+"/article")
	require.NoError(t, err)

	assert.Equal(t, url+"/article", preview.URL)
	assert.Equal(t, "How Sleep Shapes Your Mood", preview.Title)
	assert.Equal(t, "Example Health", preview.SiteName)
	assert.Equal(t, "A look at sleep and emotional regulation.", preview.Description)
	assert.Equal(t, "Sleep deprivation amplifies the brain's emotional response. Even one bad night can make stress feel heavier.", preview.Excerpt)
	assert.NotContains(t, preview.Excerpt, "tracking")

	summary := preview.Summary()
	assert.Contains(t, summary, "Title: How Sleep Shapes Your Mood")
	assert.Contains(t, summary, "Excerpt: Sleep deprivation")
}

func TestPreview_TitleFallback(t *testing.T) {
	fetcher, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Breathing Basics | Calm Site</title></head><body><div>Just breathe.</div></body></html>`))
	})

	preview, err := fetcher.Preview(t.Context(), url)
	require.NoError(t, err)
	assert.Equal(t, "Breathing Basics", preview.Title)
	assert.Equal(t, "Just breathe.", preview.Excerpt)
}

func TestPreview_Latin1(t *testing.T) {
	fetcher, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" with é encoded as 0xE9
		_, _ = w.Write([]byte("<html><head><title>Caf\xe9 Calm</title></head><body><p>ok</p></body></html>"))
	})

	preview, err := fetcher.Preview(t.Context(), url)
	require.NoError(t, err)
	assert.Equal(t, "Café Calm", preview.Title)
}

func TestPreview_Errors(t *testing.T) {
	fetcher, url := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})

	_, err := fetcher.Preview(t.Context(), url+"/json")
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = fetcher.Preview(t.Context(), url+"/missing")
	assert.ErrorContains(t, err, "status 404")

	_, err = fetcher.Preview(t.Context(), "ftp://example.com/file")
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestDefaultClientBlocksPrivateAddresses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach a loopback server")
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	fetcher := NewFetcher(Options{}, logger)

	_, err := fetcher.Preview(t.Context(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSRF protection")
}

func TestIsPrivateIP(t *testing.T) {
	for _, raw := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.9", "192.168.1.1", "169.254.169.254", "::1", "fd00::1", "0.0.0.0"} {
		assert.True(t, isPrivateIP(net.ParseIP(raw)), raw)
	}
	for _, raw := range []string{"1.1.1.1", "93.184.216.34", "2606:4700:4700::1111"} {
		assert.False(t, isPrivateIP(net.ParseIP(raw)), raw)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("word ", 100)
	out := truncate(long, 50)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 53)
	assert.Equal(t, "short", truncate("  short ", 50))
}
