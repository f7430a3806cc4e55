package httpapi

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Order represents the chronological order to use when listing records.
type Order string

const (
	// OrderDesc returns records newest first.
	OrderDesc Order = "desc"
	// OrderAsc returns records oldest first.
	OrderAsc Order = "asc"
)

// Filters captures the parsed query parameters for archive lookups.
type Filters struct {
	Authors []string
	Since   *time.Time
	Limit   int
	Order   Order
}

// ParseFilters parses query parameters into a Filters struct.
func ParseFilters(values url.Values) (Filters, error) {
	f := Filters{
		Limit: defaultLimit,
		Order: OrderDesc,
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Filters{}, errors.New("limit must be a positive integer")
		}
		if n > maxLimit {
			n = maxLimit
		}
		f.Limit = n
	}

	if raw := values.Get("order"); raw != "" {
		switch strings.ToLower(raw) {
		case "desc":
			f.Order = OrderDesc
		case "asc":
			f.Order = OrderAsc
		default:
			return Filters{}, errors.New("order must be asc or desc")
		}
	}

	if rawSince := values.Get("since"); rawSince != "" {
		parsed, err := parseSince(rawSince)
		if err != nil {
			return Filters{}, err
		}
		f.Since = &parsed
	}

	if authors := collect(values, "author"); len(authors) > 0 {
		seen := make(map[string]struct{})
		var out []string
		for _, raw := range authors {
			for _, part := range strings.Split(raw, ",") {
				a := strings.ToLower(strings.TrimSpace(part))
				if a == "" {
					continue
				}
				if _, ok := seen[a]; ok {
					continue
				}
				seen[a] = struct{}{}
				out = append(out, a)
			}
		}
		f.Authors = out
	}

	return f, nil
}

// parseSince accepts either an RFC3339 timestamp or a relative duration
// like "90m" or "24h", interpreted backward from now.
func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return time.Now().Add(-d).UTC(), nil
	}
	return time.Time{}, errors.New("since must be RFC3339 or a positive duration")
}

func collect(values url.Values, key string) []string {
	var out []string
	for _, v := range values[key] {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
