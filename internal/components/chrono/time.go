package chrono

import (
	"sync"
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the spa's location.
	Now() time.Time
	// Location is the timezone calendar dates are computed in.
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named IANA location, an empty name means UTC.
func NewStandardTime(location string) (StandardTime, error) {
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: loc}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// ManualTime is a TimeAPI whose clock only moves when told to.
type ManualTime struct {
	mu       *sync.Mutex
	now      *time.Time
	location *time.Location
}

func NewManualTime(now time.Time) ManualTime {
	return ManualTime{mu: &sync.Mutex{}, now: &now, location: now.Location()}
}

func (m ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.now
}

func (m ManualTime) Location() *time.Location {
	return m.location
}

// Advance moves the clock forward by d.
func (m ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.now = m.now.Add(d)
}

// Today returns midnight of the current calendar day in the location of t.
func Today(t TimeAPI) time.Time {
	now := t.Now().In(t.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, t.Location())
}
