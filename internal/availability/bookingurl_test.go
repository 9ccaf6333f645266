package availability

import (
	"testing"
	"time"

	"spavail-backend/internal/catalog"

	"github.com/stretchr/testify/require"
)

func TestBookingURL(t *testing.T) {
	svc := catalog.Service{ID: 501, Name: "45 Minute Sauna & Steam"}
	date := time.Date(2024, time.June, 1, 15, 30, 0, 0, time.UTC)

	require.Equal(
		t,
		"https://book.example.com/spa/service/501/45-minute-sauna-steam?date=2024-06-01",
		BookingURL("https://book.example.com/spa/", svc, date),
	)
}

func TestBookingURLRoundTrip(t *testing.T) {
	table := []struct {
		svc  catalog.Service
		date time.Time
	}{
		{svc: catalog.Service{ID: 501, Name: "45 Minute Sauna"}, date: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{svc: catalog.Service{ID: 7, Name: "Hot Tub (Private)"}, date: time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)},
		{svc: catalog.Service{ID: 9000000001, Name: ""}, date: time.Date(2025, time.February, 28, 12, 0, 0, 0, time.UTC)},
		{svc: catalog.Service{ID: 77, Name: "Service"}, date: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{svc: catalog.Service{ID: 78, Name: "Service!"}, date: time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC)},
		{svc: catalog.Service{ID: 79, Name: "Service."}, date: time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, base := range []string{"https://book.example.com", "https://book.example.com/spa/", "https://book.example.com/service/"} {
		for _, row := range table {
			raw := BookingURL(base, row.svc, row.date)
			ref, err := ParseBookingURL(raw)
			require.NoError(t, err, raw)
			require.Equal(t, row.svc.ID, ref.ServiceID, raw)
			require.Equal(t, row.date.Format(DateLayout), ref.Date, raw)
		}
	}
}

func TestParseBookingURLErrors(t *testing.T) {
	table := []string{
		"https://book.example.com/menu?date=2024-06-01",
		"https://book.example.com/service/abc/sauna?date=2024-06-01",
		"https://book.example.com/service/501/sauna",
		"https://book.example.com/service/501/sauna?date=06/01/2024",
		"https://book.example.com/service",
	}
	for _, raw := range table {
		_, err := ParseBookingURL(raw)
		require.Error(t, err, raw)
	}
}
