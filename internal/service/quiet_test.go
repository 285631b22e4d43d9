package service

import (
	"testing"
	"time"

	"cartographer-notify/internal/entity"
)

func utc(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestQuietHoursSuppressed(t *testing.T) {
	critical := entity.PriorityCritical

	tests := []struct {
		name     string
		now      time.Time
		qh       entity.QuietHours
		priority entity.Priority
		want     bool
	}{
		{
			name:     "disabled window never suppresses",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: false, Start: "22:00", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityLow,
			want:     false,
		},
		{
			name:     "inside simple window",
			now:      utc(13, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "12:00", End: "14:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "start is inclusive",
			now:      utc(12, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "12:00", End: "14:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "end is exclusive",
			now:      utc(14, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "12:00", End: "14:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     false,
		},
		{
			name:     "wrapped window catches late evening",
			now:      utc(23, 30),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "wrapped window catches early morning",
			now:      utc(2, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "wrapped window excludes midday",
			now:      utc(12, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityHigh,
			want:     false,
		},
		{
			name: "window is evaluated in the user's zone",
			// 23:30 local in Amsterdam (UTC+1 in March) is 22:30 UTC.
			now:      utc(22, 30),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "Europe/Amsterdam"},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "bypass lets critical through",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC", BypassPriority: &critical},
			priority: entity.PriorityCritical,
			want:     false,
		},
		{
			name:     "bypass still holds high",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC", BypassPriority: &critical},
			priority: entity.PriorityHigh,
			want:     true,
		},
		{
			name:     "no bypass holds even critical",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityCritical,
			want:     true,
		},
		{
			name:     "bad timezone fails open",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "22:00", End: "06:00", Timezone: "Mars/Olympus"},
			priority: entity.PriorityLow,
			want:     false,
		},
		{
			name:     "bad clock fails open",
			now:      utc(23, 0),
			qh:       entity.QuietHours{Enabled: true, Start: "25:99", End: "06:00", Timezone: "UTC"},
			priority: entity.PriorityLow,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuietHoursSuppressed(tt.now, tt.qh, tt.priority)
			if got != tt.want {
				t.Errorf("QuietHoursSuppressed(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"07:30", 450, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseClock(%q): expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseClock(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
