package sender

import (
	"strings"
	"testing"
	"time"

	"cartographer-notify/internal/entity"
)

func sampleEvent() entity.NetworkEvent {
	return entity.NetworkEvent{
		ID:         "evt-1",
		Type:       entity.DeviceOffline,
		NetworkID:  "net-1",
		Title:      "Router offline",
		Message:    "router-1 stopped responding to health checks",
		Details:    map[string]string{"device": "router-1"},
		OccurredAt: time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC),
	}
}

func TestEmailSubject(t *testing.T) {
	got := emailSubject(sampleEvent())
	want := "🔴 [Cartographer] Router offline"
	if got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}

	unknown := sampleEvent()
	unknown.Type = "solar_flare"
	if got := emailSubject(unknown); !strings.HasPrefix(got, "📢") {
		t.Errorf("unknown type subject = %q, want generic icon", got)
	}
}

func TestEmailBody(t *testing.T) {
	body := emailBody(sampleEvent(), entity.PriorityHigh)

	for _, fragment := range []string{
		"Router offline",
		"router-1 stopped responding",
		"#f97316", // high priority color
		"Priority: HIGH",
		"device: router-1",
		"2026-03-10 12:30:00 UTC",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("body missing %q", fragment)
		}
	}
}

func TestBuildEmbed(t *testing.T) {
	tests := []struct {
		priority  entity.Priority
		wantColor int
	}{
		{entity.PriorityLow, 0x64748b},
		{entity.PriorityMedium, 0xf59e0b},
		{entity.PriorityHigh, 0xf97316},
		{entity.PriorityCritical, 0xef4444},
	}

	for _, tt := range tests {
		embed := buildEmbed(sampleEvent(), tt.priority)
		if embed.Color != tt.wantColor {
			t.Errorf("%s color = %#x, want %#x", tt.priority, embed.Color, tt.wantColor)
		}
	}

	embed := buildEmbed(sampleEvent(), entity.PriorityCritical)
	if !strings.Contains(embed.Title, "Router offline") {
		t.Errorf("embed title = %q", embed.Title)
	}
	if embed.Footer == nil || !strings.Contains(embed.Footer.Text, "CRITICAL") {
		t.Errorf("embed footer = %+v, want priority label", embed.Footer)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Name != "device" {
		t.Errorf("embed fields = %+v, want the details map", embed.Fields)
	}
	if embed.Timestamp != "2026-03-10T12:30:00Z" {
		t.Errorf("embed timestamp = %q", embed.Timestamp)
	}
}
