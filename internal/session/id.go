package session

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const idTimeLayout = "20060102-150405"

// NewID returns a sortable session ID: YYYYMMDD-HHMMSS-xxxxxx.
func NewID() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return time.Now().Format(idTimeLayout) + "-" + hex.EncodeToString(suffix)
}

// ParseIDTime returns the local creation time encoded in id, or the zero
// time.
func ParseIDTime(id string) time.Time {
	if len(id) < len(idTimeLayout) {
		return time.Time{}
	}
	t, _ := time.ParseInLocation(idTimeLayout, id[:len(idTimeLayout)], time.Local)
	return t
}

// ShortID trims an ID to YYMMDD-HHMM for display.
func ShortID(id string) string {
	if len(id) < len(idTimeLayout) {
		return id
	}
	return id[2:8] + "-" + id[9:13]
}

// ExpandShortID turns a short or partial ID into a LIKE pattern. Full IDs
// are returned unchanged.
func ExpandShortID(ref string) string {
	if len(ref) == 22 && ref[8] == '-' && ref[15] == '-' {
		return ref
	}
	if len(ref) == 11 && ref[6] == '-' {
		return "20" + ref + "%"
	}
	return strings.TrimSuffix(ref, "%") + "%"
}
