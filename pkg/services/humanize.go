package services

import (
	"fmt"
	"time"
)

// HumanizeTimestamp renders an activity timestamp as a relative label.
// Anything a week old or older falls back to a calendar date.
func HumanizeTimestamp(now, timestamp time.Time) string {
	elapsed := now.Sub(timestamp)

	switch {
	case elapsed < time.Minute:
		return "Just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		hours := int(elapsed.Hours())
		if hours == 1 {
			return "1 hour ago"
		}

		return fmt.Sprintf("%d hours ago", hours)
	case elapsed < 7*24*time.Hour:
		days := int(elapsed.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}

		return fmt.Sprintf("%d days ago", days)
	default:
		return timestamp.Format("Jan 2, 2006")
	}
}
