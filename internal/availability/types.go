package availability

import (
	"context"
	"net/url"
	"sort"
	"time"

	"spavail-backend/internal/catalog"
)

// DateLayout is the calendar date format used for index keys and upstream
// date-only fields.
const DateLayout = "2006-01-02"

// TimeSlot is one bookable appointment window.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// StaffID and StaffName are empty when any staff member is acceptable.
	StaffID   *int64 `json:"staffId,omitempty"`
	StaffName string `json:"staffName,omitempty"`
}

// Index maps service name -> calendar date (YYYY-MM-DD) -> slots. A date is
// only present when it has at least one slot.
type Index map[string]map[string][]TimeSlot

// Dates returns the dates of a service in ascending order.
func (i Index) Dates(service string) []string {
	byDate := i[service]
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// SlotCount is the total number of slots across every service and date.
func (i Index) SlotCount() int {
	total := 0
	for _, byDate := range i {
		for _, slots := range byDate {
			total += len(slots)
		}
	}
	return total
}

// Gateway is the subset of the upstream client the aggregator needs.
type Gateway interface {
	Request(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// ServiceLister resolves the services to aggregate when none are given.
type ServiceLister interface {
	ListTargets(ctx context.Context) ([]catalog.Service, error)
}

const (
	DatesPath = "/v5/availability/dates"
	SlotsPath = "/v5/availability/slots"
)

type datesRequest struct {
	LocationID  int64   `json:"LocationID"`
	ServiceID   int64   `json:"ServiceID"`
	FromDate    string  `json:"FromDate"`
	ToDate      string  `json:"ToDate"`
	EmployeeIDs []int64 `json:"EmployeeIDs"`
}

type datesResponse struct {
	Locations []struct {
		Categories []struct {
			Services []struct {
				ServiceID      *int64   `json:"ServiceID"`
				AvailableDates []string `json:"AvailableDates"`
			} `json:"Services"`
		} `json:"Categories"`
	} `json:"Locations"`
}

type slotsRequest struct {
	LocationID       int64   `json:"LocationID"`
	ServiceID        int64   `json:"ServiceID"`
	FromDateTime     string  `json:"FromDateTime"`
	ToDateTime       string  `json:"ToDateTime"`
	IncludeEmployees bool    `json:"IncludeEmployees"`
	EmployeeIDs      []int64 `json:"EmployeeIDs"`
}

type slotEmployee struct {
	ID   *int64 `json:"ID"`
	Name string `json:"Name"`
}

type slotEntry struct {
	StartDateTime string         `json:"StartDateTime"`
	EndDateTime   string         `json:"EndDateTime"`
	Employees     []slotEmployee `json:"Employees"`
}

type slotsResponse struct {
	Locations []struct {
		Categories []struct {
			Services []struct {
				ServiceID *int64      `json:"ServiceID"`
				Slots     []slotEntry `json:"Slots"`
			} `json:"Services"`
		} `json:"Categories"`
	} `json:"Locations"`
}
