package catalog

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const suggestionThreshold = 0.75

// Find looks a service up by name, ignoring case. When there is no exact match
// it returns the closest names as suggestions, best first.
func Find(services []Service, name string) (match Service, suggestions []Service, ok bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, s := range services {
		if strings.ToLower(s.Name) == needle {
			return s, nil, true
		}
	}

	type scored struct {
		service Service
		score   float64
	}
	var candidates []scored
	for _, s := range services {
		score := matchr.JaroWinkler(needle, strings.ToLower(s.Name), true)
		if score >= suggestionThreshold {
			candidates = append(candidates, scored{service: s, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	for _, c := range candidates {
		suggestions = append(suggestions, c.service)
	}
	return Service{}, suggestions, false
}
