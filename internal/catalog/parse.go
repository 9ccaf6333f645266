package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hoursRegex   = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?)\b`)
	minutesRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?)\b`)
)

func firstNumber(re *regexp.Regexp, s string) int {
	groups := re.FindStringSubmatch(s)
	if len(groups) < 2 {
		return 0
	}
	n, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0
	}
	return n
}

// ParseDuration turns a display duration like "1 hr 10 min" into minutes.
// Either component may be absent, a string with neither yields 0.
func ParseDuration(display string) int {
	return firstNumber(hoursRegex, display)*60 + firstNumber(minutesRegex, display)
}

// ParsePrice turns a display price like "$1,250.00" into a number.
func ParsePrice(display string) (float64, error) {
	cleaned := strings.TrimSpace(display)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty price %q", display)
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", display, err)
	}
	return price, nil
}
