package util

import (
	"fmt"
	"time"

	"github.com/Codealike/Codealike-plugins-core/internal/core/constants"
)

// FormatActivityDuration renders d as HH:mm:ss.SSS, the period format the
// collector expects. Negative durations render as zero and hours are not
// wrapped at a day boundary.
func FormatActivityDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	hours := ms / int64(time.Hour/time.Millisecond)
	ms -= hours * int64(time.Hour/time.Millisecond)
	minutes := ms / int64(time.Minute/time.Millisecond)
	ms -= minutes * int64(time.Minute/time.Millisecond)
	seconds := ms / int64(time.Second/time.Millisecond)
	ms -= seconds * int64(time.Second/time.Millisecond)

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

// FormatTimestamp renders t as ISO-8601 with a numeric offset
func FormatTimestamp(t time.Time) string {
	return t.Format(constants.TimestampLayout)
}

// FormatDuration is the short human form used in tables, e.g. "1h 5m" or "42s"
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
