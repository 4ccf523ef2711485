package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Launching Chrome is opt-in so the suite runs on machines without a browser.
func requireChrome(t *testing.T) {
	t.Helper()
	if os.Getenv("PILLWISE_CHROME_TESTS") == "" {
		t.Skip("set PILLWISE_CHROME_TESTS=1 to run headless Chrome tests")
	}
}

func TestChromeLauncher_RendersPage(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="results"><span id="ua"></span></div>
<script>document.getElementById('ua').textContent = String(navigator.webdriver);</script></body></html>`))
	}))
	defer srv.Close()

	launcher := NewChromeLauncher(ChromeConfig{Headless: true}, zaptest.NewLogger(t))
	session, err := launcher.NewSession(context.Background(), Profile{
		UserAgent:      "pillwise-test",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		AcceptLanguage: "ko-KR,ko;q=0.9",
		InitScript:     "Object.defineProperty(navigator, 'webdriver', {get: () => undefined});",
	})
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, session.Navigate(ctx, srv.URL))
	require.NoError(t, session.WaitVisible(ctx, ".results"))

	html, err := session.OuterHTML(ctx, ".results")
	require.NoError(t, err)
	assert.Contains(t, html, "undefined")

	assert.NoError(t, session.Close())
	assert.NoError(t, session.Close(), "close is idempotent")
}

func TestChromeLauncher_WaitHonoursDeadline(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer srv.Close()

	launcher := NewChromeLauncher(ChromeConfig{Headless: true}, zaptest.NewLogger(t))
	session, err := launcher.NewSession(context.Background(), Profile{})
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(context.Background(), srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = session.WaitVisible(ctx, ".never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChromeLauncher_NavigateDoesNotWaitForSubresources(t *testing.T) {
	requireChrome(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="results">ready</div><img src="/slow.png"></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	launcher := NewChromeLauncher(ChromeConfig{Headless: true}, zaptest.NewLogger(t))
	session, err := launcher.NewSession(context.Background(), Profile{})
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, session.Navigate(ctx, srv.URL))
	require.NoError(t, session.WaitVisible(ctx, ".results"))
}
