package entity

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastStatus is the broadcast state machine. Pending is the only
// mutable state; firing is the transient claim held by exactly one sweep;
// sent, cancelled and failed are terminal.
type BroadcastStatus string

const (
	BroadcastPending   BroadcastStatus = "pending"
	BroadcastFiring    BroadcastStatus = "firing"
	BroadcastSent      BroadcastStatus = "sent"
	BroadcastCancelled BroadcastStatus = "cancelled"
	BroadcastFailed    BroadcastStatus = "failed"
)

func (s BroadcastStatus) Terminal() bool {
	return s == BroadcastSent || s == BroadcastCancelled || s == BroadcastFailed
}

// ScheduledBroadcast is an owner-authored message delivered to every
// eligible member of a network at its scheduled instant, through the same
// resolution pipeline as system events.
type ScheduledBroadcast struct {
	ID        uuid.UUID        `json:"id"`
	NetworkID string           `json:"network_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"notification_type"`
	Priority  Priority         `json:"priority"`

	// ScheduledAt is absolute UTC; Timezone is the author's IANA zone,
	// kept for display only.
	ScheduledAt time.Time `json:"scheduled_at"`
	Timezone    string    `json:"timezone"`

	Status BroadcastStatus `json:"status"`

	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     string     `json:"created_by"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	UsersNotified int        `json:"users_notified"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// BroadcastUpdate is a partial update, legal only while pending. A changed
// schedule is revalidated against the lead-time floor at commit time.
type BroadcastUpdate struct {
	Title       *string
	Message     *string
	Type        *NotificationType
	Priority    *Priority
	ScheduledAt *time.Time
	Timezone    *string
}

func (u *BroadcastUpdate) Apply(b *ScheduledBroadcast) {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Message != nil {
		b.Message = *u.Message
	}
	if u.Type != nil {
		b.Type = *u.Type
	}
	if u.Priority != nil {
		b.Priority = *u.Priority
	}
	if u.ScheduledAt != nil {
		b.ScheduledAt = u.ScheduledAt.UTC()
	}
	if u.Timezone != nil {
		b.Timezone = *u.Timezone
	}
}

// Event synthesizes the pipeline event for a fired broadcast.
func (b *ScheduledBroadcast) Event(now time.Time) NetworkEvent {
	return NetworkEvent{
		ID:         "broadcast:" + b.ID.String(),
		Type:       b.Type,
		NetworkID:  b.NetworkID,
		Priority:   b.Priority,
		Title:      b.Title,
		Message:    b.Message,
		OccurredAt: now,
	}
}
