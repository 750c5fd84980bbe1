package session

import (
	"strings"
	"testing"
	"time"
)

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id := NewID()
		if len(id) != 22 || id[8] != '-' || id[15] != '-' {
			t.Fatalf("NewID() = %q, want YYYYMMDD-HHMMSS-xxxxxx", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}

	id := NewID()
	if age := time.Since(ParseIDTime(id)); age < 0 || age > time.Minute {
		t.Fatalf("ParseIDTime(%q) is %v old", id, age)
	}
}

func TestParseIDTime(t *testing.T) {
	got := ParseIDTime("20240115-143052-a1b2c3")
	want := time.Date(2024, 1, 15, 14, 30, 52, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseIDTime = %v, want %v", got, want)
	}
	for _, bad := range []string{"", "short", "2024-01-15 14:30"} {
		if got := ParseIDTime(bad); !got.IsZero() {
			t.Errorf("ParseIDTime(%q) = %v, want zero", bad, got)
		}
	}
}

func TestShortAndExpandedIDs(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		short  string
		expand string
	}{
		{"full id", "20240115-143052-a1b2c3", "240115-1430", "20240115-143052-a1b2c3"},
		{"midnight", "20231225-000000-ffffff", "231225-0000", "20231225-000000-ffffff"},
		{"not an id", "short", "short", "short%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortID(tt.id); got != tt.short {
				t.Errorf("ShortID = %q, want %q", got, tt.short)
			}
			if got := ExpandShortID(tt.id); got != tt.expand {
				t.Errorf("ExpandShortID = %q, want %q", got, tt.expand)
			}
		})
	}

	for ref, want := range map[string]string{
		"240115-1430": "20240115-1430%",
		"240115":      "240115%",
		"2024%":       "2024%",
	} {
		if got := ExpandShortID(ref); got != want {
			t.Errorf("ExpandShortID(%q) = %q, want %q", ref, got, want)
		}
	}

	id := NewID()
	if prefix := strings.TrimSuffix(ExpandShortID(ShortID(id)), "%"); !strings.HasPrefix(id, prefix) {
		t.Errorf("short form of %q expands to %q", id, prefix)
	}
}
