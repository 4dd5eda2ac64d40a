package apikey

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var expiryPattern = regexp.MustCompile(`^(\d+)([HDMY])$`)

// maxExpiry caps each unit at ten years.
var maxExpiry = map[string]int{
	"H": 10 * 365 * 24,
	"D": 10 * 365,
	"M": 10 * 12,
	"Y": 10,
}

// ParseExpiry turns an interval such as 12H, 30D, 3M or 1Y into an absolute
// expiry relative to now. Units are hours, days, calendar months and years.
func ParseExpiry(expiry string, now time.Time) (time.Time, error) {
	m := expiryPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(expiry)))
	if m == nil {
		return time.Time{}, errors.New("expiry must be a number followed by H, D, M or Y")
	}
	unit := m[2]
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, errors.New("expiry must be a positive interval")
	}
	if n > maxExpiry[unit] {
		return time.Time{}, fmt.Errorf("expiry must not exceed %d%s", maxExpiry[unit], unit)
	}
	switch unit {
	case "H":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "D":
		return now.AddDate(0, 0, n), nil
	case "M":
		return now.AddDate(0, n, 0), nil
	default:
		return now.AddDate(n, 0, 0), nil
	}
}
