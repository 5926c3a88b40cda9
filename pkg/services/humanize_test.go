package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"thirty seconds", 30 * time.Second, "Just now"},
		{"five minutes", 5 * time.Minute, "5 min ago"},
		{"fifty nine minutes", 59 * time.Minute, "59 min ago"},
		{"ninety minutes", 90 * time.Minute, "1 hour ago"},
		{"five hours", 5 * time.Hour, "5 hours ago"},
		{"one day", 26 * time.Hour, "1 day ago"},
		{"three days", 3 * 24 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeTimestamp(now, now.Add(-tt.age)))
		})
	}
}

func TestHumanizeTimestampFallsBackToDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	old := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "May 1, 2025", HumanizeTimestamp(now, old))
}
