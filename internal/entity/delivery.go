package entity

import "time"

// SuppressReason classifies why a resolution produced no delivery.
// Suppression is a normal outcome, never an error.
type SuppressReason string

const (
	SuppressDisabled       SuppressReason = "disabled"
	SuppressBelowThreshold SuppressReason = "below_threshold"
	SuppressNoChannel      SuppressReason = "no_channel"
	SuppressQuietHours     SuppressReason = "quiet_hours"
	SuppressRateLimited    SuppressReason = "rate_limited"
)

// ChannelTarget is one resolved destination for a delivery.
type ChannelTarget struct {
	Channel Channel
	// Address is the email address for ChannelEmail. For ChannelDiscord
	// it is the channel id (channel-post mode) or the linked Discord user
	// id (direct-message mode).
	Address string
	Mode    DiscordMode
}

// ResolvedDelivery is the resolver's positive outcome: deliver to this
// user at this effective priority over these channels.
type ResolvedDelivery struct {
	UserID            string
	NetworkID         string
	EffectivePriority Priority
	Targets           []ChannelTarget
	QuietHours        QuietHours
	MaxPerHour        int
}

// DeliveryOutcome is the recorded result of one channel attempt.
type DeliveryOutcome string

const (
	OutcomeSent      DeliveryOutcome = "sent"
	OutcomeFailed    DeliveryOutcome = "failed"
	OutcomeDuplicate DeliveryOutcome = "duplicate"
)

// DeliveryAttempt is internal bookkeeping keyed by the idempotency tuple
// (event id, user id, channel). A retried dispatch observing an existing
// row records a duplicate outcome and never reaches the sink.
type DeliveryAttempt struct {
	EventID   string          `json:"event_id"`
	UserID    string          `json:"user_id"`
	Channel   Channel         `json:"channel"`
	Outcome   DeliveryOutcome `json:"outcome"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DeliveryReport summarizes one event's trip through the pipeline.
type DeliveryReport struct {
	EventID    string
	Resolved   int
	Delivered  int
	Failed     int
	Suppressed map[SuppressReason]int
}

func (r *DeliveryReport) Suppress(reason SuppressReason) {
	if r.Suppressed == nil {
		r.Suppressed = make(map[SuppressReason]int)
	}
	r.Suppressed[reason]++
}
