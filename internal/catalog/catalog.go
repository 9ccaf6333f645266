package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"spavail-backend/internal/components/assert"
	"spavail-backend/internal/components/telemetry"
)

const (
	report_resolver_list_all = "resolver.list-all"
	report_resolver_item     = "resolver.item"
)

// DefaultKeywords select the heat and water services the site is about.
var DefaultKeywords = []string{"sauna", "steam", "hot tub", "combination"}

// Service is one bookable offering of the menu.
type Service struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
}

// Gateway is the subset of the upstream client the resolver needs.
type Gateway interface {
	Request(ctx context.Context, method, path string, query url.Values, body, out any) error
}

type menuResponse struct {
	Sections []menuSection `json:"MenuSections"`
}

type menuSection struct {
	Name   string      `json:"Name"`
	Groups []menuGroup `json:"Groups"`
}

type menuGroup struct {
	Name  string     `json:"Name"`
	Items []menuItem `json:"Items"`
}

type menuItem struct {
	ServiceID       *int64 `json:"ServiceID"`
	Name            string `json:"Name"`
	DisplayDuration string `json:"DisplayDuration"`
	DisplayPrice    string `json:"DisplayPrice"`
}

// Resolver fetches the service menu of one location.
type Resolver struct {
	gateway    Gateway
	locationID int64
	keywords   []string
	tel        telemetry.API
}

// NewResolver creates a Resolver, an empty keyword list means DefaultKeywords.
func NewResolver(gateway Gateway, locationID int64, keywords []string, tel telemetry.API) Resolver {
	assert.NotNil(gateway)
	assert.NotNil(tel)
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return Resolver{
		gateway:    gateway,
		locationID: locationID,
		keywords:   keywords,
		tel:        telemetry.NewScopedAPI("catalog", tel),
	}
}

func MenuPath(locationID int64) string {
	return fmt.Sprintf("/v5/locations/%d/menu", locationID)
}

// ListAll returns every service on the menu that has a service id.
func (r Resolver) ListAll(ctx context.Context) ([]Service, error) {
	var menu menuResponse
	err := r.gateway.Request(ctx, http.MethodGet, MenuPath(r.locationID), nil, nil, &menu)
	if err != nil {
		r.tel.ReportBroken(report_resolver_list_all, err, r.locationID)
		return nil, err
	}
	services := r.flatten(menu)
	r.tel.ReportCount(report_resolver_list_all, int64(len(services)))
	return services, nil
}

// ListTargets returns the services matching the configured keywords.
func (r Resolver) ListTargets(ctx context.Context) ([]Service, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterTargets(all, r.keywords), nil
}

func (r Resolver) flatten(menu menuResponse) []Service {
	seen := map[int64]bool{}
	var out []Service
	for _, section := range menu.Sections {
		for _, group := range section.Groups {
			category := group.Name
			if category == "" {
				category = section.Name
			}
			for _, item := range group.Items {
				if item.ServiceID == nil {
					continue
				}
				if seen[*item.ServiceID] {
					r.tel.ReportWarning(report_resolver_item, "duplicate service id", *item.ServiceID, item.Name)
					continue
				}
				seen[*item.ServiceID] = true

				price, err := ParsePrice(item.DisplayPrice)
				if err != nil {
					r.tel.ReportWarning(report_resolver_item, err, *item.ServiceID)
				}
				out = append(out, Service{
					ID:              *item.ServiceID,
					Name:            strings.TrimSpace(item.Name),
					Category:        category,
					DurationMinutes: ParseDuration(item.DisplayDuration),
					Price:           price,
				})
			}
		}
	}
	return out
}

// FilterTargets keeps the services whose name contains any keyword, ignoring case.
func FilterTargets(services []Service, keywords []string) []Service {
	var out []Service
	for _, s := range services {
		name := strings.ToLower(s.Name)
		for _, k := range keywords {
			if strings.Contains(name, strings.ToLower(k)) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
