package restydump

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
)

const redacted = "<redacted>"

// secretHeaders and secretParams never reach a dump file.
var (
	secretHeaders = []string{"Authorization", "Ocp-Apim-Subscription-Key", "Cookie", "Set-Cookie"}
	secretParams  = []string{"access_token"}
)

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		secret := false
		for _, s := range secretHeaders {
			if strings.EqualFold(k, s) {
				secret = true
			}
		}
		for _, v := range headers[k] {
			if secret {
				v = redacted
			}
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := u.Query()
	changed := false
	for _, p := range secretParams {
		if query.Has(p) {
			query.Set(p, redacted)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response headers in ("Key: Value" format)
// 7: response body
const messageTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s

%s

%s`

func formatMessage(res *resty.Response) string {
	req := res.Request.RawRequest
	return fmt.Sprintf(
		messageTemplate,

		req.Method, redactURL(req.URL.String()),
		formatHeaders(req.Header),
		formatRequestBody(req),

		res.Status(),
		formatHeaders(res.Header()),
		res.String(),
	)
}
