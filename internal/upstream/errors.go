package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedShape marks a response whose JSON could not be decoded into the
// expected structure at all.
var ErrMalformedShape = errors.New("malformed upstream response")

// RejectedError is returned for any non-2xx status. The usual cause is an
// expired or invalid token, callers should invalidate their token and retry once.
type RejectedError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RejectedError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("upstream rejected request: %s", status)
}

// IsRejected reports whether err is, or wraps, a *RejectedError.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
