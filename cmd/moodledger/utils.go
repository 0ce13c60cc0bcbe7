package main

import (
	"time"
)

// formatTimestamp renders a stored UTC instant as RFC 3339 in the local zone.
func formatTimestamp(ts time.Time) string {
	return ts.Local().Format(time.RFC3339)
}
