package availability

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"spavail-backend/internal/catalog"
	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/telemetry"

	"golang.org/x/sync/errgroup"
)

const (
	report_aggregator_get_all = "aggregator.get-all"
	report_aggregator_dates   = "aggregator.dates"
	report_aggregator_slots   = "aggregator.slots"
)

// DefaultConcurrency bounds the number of upstream calls in flight for one run.
const DefaultConcurrency = 4

// Aggregator builds an Index with the two phase dates-then-slots protocol.
type Aggregator struct {
	gateway     Gateway
	lister      ServiceLister
	locationID  int64
	location    *time.Location
	concurrency int
	tel         telemetry.API
}

// NewAggregator creates an Aggregator. Slot windows are computed in location,
// a concurrency below 1 means DefaultConcurrency.
func NewAggregator(
	gateway Gateway,
	lister ServiceLister,
	locationID int64,
	location *time.Location,
	concurrency int,
	tel telemetry.API,
) Aggregator {
	assert.NotNil(gateway)
	assert.NotNil(lister)
	assert.NotNil(location)
	assert.NotNil(tel)
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return Aggregator{
		gateway:     gateway,
		lister:      lister,
		locationID:  locationID,
		location:    location,
		concurrency: concurrency,
		tel:         telemetry.NewScopedAPI("availability", tel),
	}
}

type dayQuery struct {
	service catalog.Service
	date    string
}

// GetAll returns the availability of services between from and to (inclusive
// calendar dates). A nil services slice resolves the target services first.
//
// Any failing upstream call fails the whole run.
func (a Aggregator) GetAll(ctx context.Context, from, to time.Time, services []catalog.Service) (Index, error) {
	if services == nil {
		var err error
		services, err = a.lister.ListTargets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list target services: %w", err)
		}
	}

	fromDate := from.In(a.location).Format(DateLayout)
	toDate := to.In(a.location).Format(DateLayout)

	dates := make([][]string, len(services))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)
	for i, svc := range services {
		group.Go(func() error {
			found, err := a.AvailableDates(groupCtx, svc.ID, fromDate, toDate)
			if err != nil {
				return fmt.Errorf("available dates of %q: %w", svc.Name, err)
			}
			dates[i] = found
			return nil
		})
	}
	err := group.Wait()
	if err != nil {
		a.tel.ReportBroken(report_aggregator_get_all, err)
		return nil, err
	}

	var queries []dayQuery
	for i, svc := range services {
		for _, date := range dates[i] {
			queries = append(queries, dayQuery{service: svc, date: date})
		}
	}

	slots := make([][]TimeSlot, len(queries))
	group, groupCtx = errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)
	for i, q := range queries {
		group.Go(func() error {
			found, err := a.Slots(groupCtx, q.service.ID, q.date)
			if err != nil {
				return fmt.Errorf("slots of %q on %s: %w", q.service.Name, q.date, err)
			}
			slots[i] = found
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		a.tel.ReportBroken(report_aggregator_get_all, err)
		return nil, err
	}

	index := Index{}
	for i, q := range queries {
		if len(slots[i]) == 0 {
			continue
		}
		byDate, ok := index[q.service.Name]
		if !ok {
			byDate = map[string][]TimeSlot{}
			index[q.service.Name] = byDate
		}
		byDate[q.date] = append(byDate[q.date], slots[i]...)
	}
	for _, byDate := range index {
		for _, daySlots := range byDate {
			sort.SliceStable(daySlots, func(i, j int) bool {
				return daySlots[i].Start.Before(daySlots[j].Start)
			})
		}
	}

	a.tel.ReportCount(report_aggregator_get_all, int64(index.SlotCount()))
	return index, nil
}

// AvailableDates returns the sorted, deduplicated calendar dates on which
// the service has at least one opening between fromDate and toDate.
func (a Aggregator) AvailableDates(ctx context.Context, serviceID int64, fromDate, toDate string) ([]string, error) {
	var res datesResponse
	err := a.gateway.Request(ctx, http.MethodPost, DatesPath, nil, datesRequest{
		LocationID:  a.locationID,
		ServiceID:   serviceID,
		FromDate:    fromDate,
		ToDate:      toDate,
		EmployeeIDs: []int64{},
	}, &res)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, location := range res.Locations {
		for _, category := range location.Categories {
			for _, svc := range category.Services {
				if svc.ServiceID != nil && *svc.ServiceID != serviceID {
					continue
				}
				for _, raw := range svc.AvailableDates {
					date, ok := truncateDate(raw)
					if !ok {
						a.tel.ReportWarning(report_aggregator_dates, "unparsable date", serviceID, raw)
						continue
					}
					if seen[date] {
						continue
					}
					seen[date] = true
					out = append(out, date)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Slots returns the slots of the service on one calendar date, keeping only
// the first staff member offered for each slot.
func (a Aggregator) Slots(ctx context.Context, serviceID int64, date string) ([]TimeSlot, error) {
	day, err := time.ParseInLocation(DateLayout, date, a.location)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	endOfDay := day.AddDate(0, 0, 1).Add(-time.Second)

	var res slotsResponse
	err = a.gateway.Request(ctx, http.MethodPost, SlotsPath, nil, slotsRequest{
		LocationID:       a.locationID,
		ServiceID:        serviceID,
		FromDateTime:     day.Format(time.RFC3339),
		ToDateTime:       endOfDay.Format(time.RFC3339),
		IncludeEmployees: true,
		EmployeeIDs:      []int64{},
	}, &res)
	if err != nil {
		return nil, err
	}

	var out []TimeSlot
	for _, location := range res.Locations {
		for _, category := range location.Categories {
			for _, svc := range category.Services {
				if svc.ServiceID != nil && *svc.ServiceID != serviceID {
					continue
				}
				for _, entry := range svc.Slots {
					slot, err := a.toTimeSlot(entry)
					if err != nil {
						a.tel.ReportWarning(report_aggregator_slots, err, serviceID, date)
						continue
					}
					out = append(out, slot)
				}
			}
		}
	}
	return out, nil
}

func (a Aggregator) toTimeSlot(entry slotEntry) (TimeSlot, error) {
	start, err := a.parseDateTime(entry.StartDateTime)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("slot start: %w", err)
	}
	end, err := a.parseDateTime(entry.EndDateTime)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("slot end: %w", err)
	}
	slot := TimeSlot{Start: start, End: end}
	if len(entry.Employees) > 0 {
		slot.StaffID = entry.Employees[0].ID
		slot.StaffName = entry.Employees[0].Name
	}
	return slot, nil
}

// parseDateTime accepts RFC 3339 and, for timestamps without an offset, the
// aggregator's location.
func (a Aggregator) parseDateTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.In(a.location), nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, a.location)
}

func truncateDate(raw string) (string, bool) {
	if len(raw) < len(DateLayout) {
		return "", false
	}
	date := raw[:len(DateLayout)]
	_, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", false
	}
	return date, true
}
