package browsertoken

import (
	"net/url"
	"sync"
)

const tokenParam = "access_token"

// extractToken returns the access_token query parameter of rawURL, if any.
func extractToken(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	value := parsed.Query().Get(tokenParam)
	if value == "" {
		return "", false
	}
	return value, true
}

// capture keeps the first access token seen on the page's outbound requests.
// The first one comes from the page's own bootstrap, later ones are ignored.
type capture struct {
	mu    sync.Mutex
	token string
}

// observe inspects one request url and reports whether it produced the capture.
func (c *capture) observe(rawURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return false
	}
	value, ok := extractToken(rawURL)
	if !ok {
		return false
	}
	c.token = value
	return true
}

func (c *capture) value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// redact keeps enough of a token to correlate log lines without leaking it.
func redact(tok string) string {
	if len(tok) <= 6 {
		return "***"
	}
	return tok[:6] + "..."
}
