package sender

import (
	"fmt"
	"strings"

	"cartographer-notify/internal/entity"
)

// Rendering tables shared by both channels so an event looks the same
// wherever it lands.

var typeIcons = map[entity.NotificationType]string{
	entity.DeviceOffline:        "🔴",
	entity.DeviceOnline:         "🟢",
	entity.DeviceDegraded:       "🟡",
	entity.AnomalyDetected:      "⚠️",
	entity.HighLatency:          "🐌",
	entity.PacketLoss:           "📉",
	entity.ISPIssue:             "🌐",
	entity.SecurityAlert:        "🔒",
	entity.ScheduledMaintenance: "🔧",
	entity.SystemStatus:         "ℹ️",
	entity.CartographerUp:       "🟢",
	entity.CartographerDown:     "🔴",
}

func icon(t entity.NotificationType) string {
	if i, ok := typeIcons[t]; ok {
		return i
	}
	return "📢"
}

var priorityHexColors = map[entity.Priority]string{
	entity.PriorityLow:      "#64748b",
	entity.PriorityMedium:   "#f59e0b",
	entity.PriorityHigh:     "#f97316",
	entity.PriorityCritical: "#ef4444",
}

func hexColor(p entity.Priority) string {
	if c, ok := priorityHexColors[p]; ok {
		return c
	}
	return priorityHexColors[entity.PriorityLow]
}

var priorityEmbedColors = map[entity.Priority]int{
	entity.PriorityLow:      0x64748b,
	entity.PriorityMedium:   0xf59e0b,
	entity.PriorityHigh:     0xf97316,
	entity.PriorityCritical: 0xef4444,
}

func embedColor(p entity.Priority) int {
	if c, ok := priorityEmbedColors[p]; ok {
		return c
	}
	return priorityEmbedColors[entity.PriorityLow]
}

func emailSubject(event entity.NetworkEvent) string {
	return fmt.Sprintf("%s [Cartographer] %s", icon(event.Type), event.Title)
}

func emailBody(event entity.NetworkEvent, effective entity.Priority) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	fmt.Fprintf(&b, `<h2 style="border-left: 4px solid %s; padding-left: 12px;">%s %s</h2>`,
		hexColor(effective), icon(event.Type), event.Title)
	fmt.Fprintf(&b, `<p>%s</p>`, event.Message)
	fmt.Fprintf(&b, `<p style="color: %s; font-weight: bold;">Priority: %s</p>`,
		hexColor(effective), strings.ToUpper(string(effective)))
	for k, v := range event.Details {
		fmt.Fprintf(&b, `<p style="color: #64748b; font-size: 12px;">%s: %s</p>`, k, v)
	}
	fmt.Fprintf(&b, `<p style="color: #64748b; font-size: 12px;">%s</p>`,
		event.OccurredAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString(`</div>`)
	return b.String()
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

func buildEmbed(event entity.NetworkEvent, effective entity.Priority) discordEmbed {
	embed := discordEmbed{
		Title:       fmt.Sprintf("%s %s", icon(event.Type), event.Title),
		Description: event.Message,
		Color:       embedColor(effective),
		Footer:      &discordEmbedFooter{Text: "Cartographer • " + strings.ToUpper(string(effective))},
		Timestamp:   event.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	for k, v := range event.Details {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: k, Value: v, Inline: true})
	}
	return embed
}
