package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredAPI forwards everything to the inner API and additionally records
// ReportCount values on an otel gauge, with the report id as the "id" attribute.
type MeteredAPI struct {
	API
	gauge metric.Int64Gauge
}

// NewMeteredAPI must be called after the global meter provider is installed.
func NewMeteredAPI(meterName string, inner API) MeteredAPI {
	gauge, err := otel.Meter(meterName).Int64Gauge("report_count")
	if err != nil {
		inner.ReportWarning("telemetry.metered-api", err)
	}
	return MeteredAPI{API: inner, gauge: gauge}
}

func (m MeteredAPI) ReportCount(id string, count int64) {
	m.API.ReportCount(id, count)
	if m.gauge == nil {
		return
	}
	m.gauge.Record(
		context.Background(),
		count,
		metric.WithAttributes(attribute.String("id", id)),
	)
}
