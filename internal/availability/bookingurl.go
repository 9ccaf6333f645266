package availability

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"spavail-backend/internal/catalog"
)

// BookingRef identifies what a booking URL points to.
type BookingRef struct {
	ServiceID int64
	Date      string
}

// BookingURL returns the public booking page of a service on a date:
// {base}/service/{id}/{slug}?date=YYYY-MM-DD
func BookingURL(base string, svc catalog.Service, date time.Time) string {
	u := fmt.Sprintf(
		"%s/service/%d/%s",
		strings.TrimRight(base, "/"),
		svc.ID,
		slugify(svc.Name),
	)
	query := url.Values{"date": []string{date.Format(DateLayout)}}
	return u + "?" + query.Encode()
}

// ParseBookingURL extracts the service id and date from a URL made by BookingURL.
func ParseBookingURL(raw string) (BookingRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return BookingRef{}, err
	}

	// the id follows the "service" segment that is third (or, for an empty
	// slug, second) from the end, so base paths and slugs may contain it too
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id int64
	found := false
	for _, idx := range []int{len(segments) - 3, len(segments) - 2} {
		if idx < 0 || segments[idx] != "service" {
			continue
		}
		id, err = strconv.ParseInt(segments[idx+1], 10, 64)
		if err == nil {
			found = true
			break
		}
	}
	if !found {
		if err != nil {
			return BookingRef{}, fmt.Errorf("service id: %w", err)
		}
		return BookingRef{}, fmt.Errorf("no service segment in %q", u.Path)
	}

	date := u.Query().Get("date")
	_, err = time.Parse(DateLayout, date)
	if err != nil {
		return BookingRef{}, fmt.Errorf("date: %w", err)
	}
	return BookingRef{ServiceID: id, Date: date}, nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
