package browsertoken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"spavail-backend/internal/components/telemetry"
	"spavail-backend/internal/token"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOptions(t *testing.T) {
	opts := Options{
		PageURL:      "https://booking.example.com",
		PageTimeout:  time.Minute,
		PollAttempts: 100,
	}.normalize()
	require.Equal(t, maxPageTimeout, opts.PageTimeout)
	require.Equal(t, maxPollAttempts, opts.PollAttempts)
	require.Equal(t, 500*time.Millisecond, opts.PollInterval)
	require.Equal(t, DefaultUserAgent, opts.UserAgent)

	opts = Options{PageURL: "x", PageTimeout: time.Second, PollAttempts: 1}.normalize()
	require.Equal(t, minPageTimeout, opts.PageTimeout)
	require.Equal(t, minPollAttempts, opts.PollAttempts)

	opts = Options{PageURL: "x"}.normalize()
	require.Equal(t, DefaultOptions("x"), opts)
}

func testAcquirer(t *testing.T, attempts int) Acquirer {
	return Acquirer{
		opts: Options{PollInterval: time.Millisecond, PollAttempts: attempts},
		tel:  telemetry.NewTestAPI(t),
	}
}

func TestWaitForTokenObserved(t *testing.T) {
	c := &capture{}
	go func() {
		time.Sleep(5 * time.Millisecond)
		c.observe("https://api.example.com/x?access_token=late")
	}()

	tok, err := testAcquirer(t, 1000).waitForToken(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, "late", tok)
}

func TestWaitForTokenTimeout(t *testing.T) {
	_, err := testAcquirer(t, 3).waitForToken(context.Background(), &capture{})
	require.Equal(t, token.ErrAcquisitionTimeout, err)
}

func TestWaitForTokenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testAcquirer(t, 1000).waitForToken(ctx, &capture{})
	require.ErrorIs(t, err, token.ErrAcquisitionTimeout)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAcquireWithoutBrowser(t *testing.T) {
	opts := DefaultOptions("http://127.0.0.1:1/")
	opts.ExecPath = filepath.Join(t.TempDir(), "no-such-chrome")
	acquirer := NewAcquirer(opts, telemetry.NewTestAPI(t))

	_, err := acquirer.Acquire(context.Background())
	require.ErrorIs(t, err, token.ErrAcquisitionUnavailable)
	require.False(t, errors.Is(err, token.ErrAcquisitionTimeout))
}

func findBrowser() string {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		path, err := exec.LookPath(name)
		if err == nil {
			return path
		}
	}
	return ""
}

const bootstrapPage = `<!doctype html>
<html><body>
<script>
fetch("/api/menu?access_token=page-bootstrap-token").catch(() => {});
setTimeout(() => fetch("/api/menu?access_token=later-token").catch(() => {}), 200);
</script>
</body></html>`

func TestAcquireFromBootstrapRequest(t *testing.T) {
	browser := findBrowser()
	if browser == "" || testing.Short() {
		t.Skip("no chrome installation available")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bootstrapPage)
	})
	mux.HandleFunc("/api/menu", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, "{}")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	opts := DefaultOptions(server.URL)
	opts.ExecPath = browser
	opts.NoSandbox = true
	acquirer := NewAcquirer(opts, telemetry.NewTestAPI(t))

	tok, err := acquirer.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, "page-bootstrap-token", tok)
}
