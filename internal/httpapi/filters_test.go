package httpapi

import (
	"net/url"
	"reflect"
	"testing"
	"time"
)

func TestParseFiltersDefaults(t *testing.T) {
	f, err := ParseFilters(url.Values{})
	if err != nil {
		t.Fatalf("ParseFilters: %v", err)
	}
	if f.Limit != 100 || f.Order != OrderDesc || f.Since != nil || f.Authors != nil {
		t.Fatalf("defaults wrong: %+v", f)
	}
}

func TestParseFiltersLimit(t *testing.T) {
	f, err := ParseFilters(url.Values{"limit": {"25"}})
	if err != nil || f.Limit != 25 {
		t.Fatalf("limit=25 -> %+v, %v", f, err)
	}

	f, err = ParseFilters(url.Values{"limit": {"5000"}})
	if err != nil || f.Limit != 1000 {
		t.Fatalf("oversized limit must be capped, got %+v, %v", f, err)
	}

	for _, bad := range []string{"0", "-1", "ten"} {
		if _, err := ParseFilters(url.Values{"limit": {bad}}); err == nil {
			t.Errorf("limit=%q should fail", bad)
		}
	}
}

func TestParseFiltersOrder(t *testing.T) {
	f, err := ParseFilters(url.Values{"order": {"ASC"}})
	if err != nil || f.Order != OrderAsc {
		t.Fatalf("order=ASC -> %+v, %v", f, err)
	}
	if _, err := ParseFilters(url.Values{"order": {"sideways"}}); err == nil {
		t.Fatalf("invalid order should fail")
	}
}

func TestParseFiltersSince(t *testing.T) {
	f, err := ParseFilters(url.Values{"since": {"2024-02-01T09:00:00Z"}})
	if err != nil {
		t.Fatalf("RFC3339 since: %v", err)
	}
	want := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	if f.Since == nil || !f.Since.Equal(want) {
		t.Fatalf("since wrong: %v", f.Since)
	}

	f, err = ParseFilters(url.Values{"since": {"90m"}})
	if err != nil {
		t.Fatalf("relative since: %v", err)
	}
	elapsed := time.Since(*f.Since)
	if elapsed < 89*time.Minute || elapsed > 91*time.Minute {
		t.Fatalf("relative since must count back from now, got %v ago", elapsed)
	}

	if _, err := ParseFilters(url.Values{"since": {"yesterday"}}); err == nil {
		t.Fatalf("unparseable since should fail")
	}
	if _, err := ParseFilters(url.Values{"since": {"-5m"}}); err == nil {
		t.Fatalf("negative duration should fail")
	}
}

func TestParseFiltersAuthors(t *testing.T) {
	values := url.Values{"author": {"Drago Saggio, fenice arguta", "DRAGO SAGGIO", " "}}
	f, err := ParseFilters(values)
	if err != nil {
		t.Fatalf("ParseFilters: %v", err)
	}
	want := []string{"drago saggio", "fenice arguta"}
	if !reflect.DeepEqual(f.Authors, want) {
		t.Fatalf("authors must be lowercased and deduplicated: %v", f.Authors)
	}
}
