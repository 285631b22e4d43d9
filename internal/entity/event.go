package entity

import "time"

// NotificationType is the closed set of event classes the engine understands.
type NotificationType string

const (
	DeviceOffline        NotificationType = "device_offline"
	DeviceOnline         NotificationType = "device_online"
	DeviceDegraded       NotificationType = "device_degraded"
	AnomalyDetected      NotificationType = "anomaly_detected"
	HighLatency          NotificationType = "high_latency"
	PacketLoss           NotificationType = "packet_loss"
	ISPIssue             NotificationType = "isp_issue"
	SecurityAlert        NotificationType = "security_alert"
	ScheduledMaintenance NotificationType = "scheduled_maintenance"
	SystemStatus         NotificationType = "system_status"
	CartographerUp       NotificationType = "cartographer_up"
	CartographerDown     NotificationType = "cartographer_down"
)

// Priority is totally ordered: Low < Medium < High < Critical.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// AtLeast reports whether p >= other in the priority order.
func (p Priority) AtLeast(other Priority) bool {
	return priorityRank[p] >= priorityRank[other]
}

// typeDefaults holds the system-defined default priority per type. Types
// absent from this table (future additions) default to medium and are
// opt-in only.
var typeDefaults = map[NotificationType]Priority{
	DeviceOffline:        PriorityHigh,
	DeviceOnline:         PriorityLow,
	DeviceDegraded:       PriorityMedium,
	AnomalyDetected:      PriorityHigh,
	HighLatency:          PriorityMedium,
	PacketLoss:           PriorityMedium,
	ISPIssue:             PriorityHigh,
	SecurityAlert:        PriorityCritical,
	ScheduledMaintenance: PriorityLow,
	SystemStatus:         PriorityLow,
	CartographerUp:       PriorityHigh,
	CartographerDown:     PriorityCritical,
}

func (t NotificationType) IsValid() bool {
	_, ok := typeDefaults[t]
	return ok
}

// DefaultPriority returns the system default priority for the type.
func (t NotificationType) DefaultPriority() Priority {
	if p, ok := typeDefaults[t]; ok {
		return p
	}
	return PriorityMedium
}

// IsGlobal reports whether the type is scoped to the service itself rather
// than to one network. Global types resolve against global preferences.
func (t NotificationType) IsGlobal() bool {
	return t == CartographerUp || t == CartographerDown
}

// AllNotificationTypes lists every known type, used for the default
// enabled set of a freshly created preference record.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		DeviceOffline, DeviceOnline, DeviceDegraded, AnomalyDetected,
		HighLatency, PacketLoss, ISPIssue, SecurityAlert,
		ScheduledMaintenance, SystemStatus, CartographerUp, CartographerDown,
	}
}

// Channel identifies a delivery sink.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelDiscord Channel = "discord"
)

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelDiscord
}

// DiscordMode selects where a Discord delivery lands.
type DiscordMode string

const (
	DiscordChannelPost   DiscordMode = "channel"
	DiscordDirectMessage DiscordMode = "dm"
)

// NetworkEvent is a raw event entering the pipeline: produced by the health
// checkers, the anomaly detector, the engine itself (cartographer_up/down)
// or synthesized from a fired broadcast.
type NetworkEvent struct {
	ID         string            `json:"id"`
	Type       NotificationType  `json:"event_type"`
	NetworkID  string            `json:"network_id,omitempty"`
	Priority   Priority          `json:"priority,omitempty"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
