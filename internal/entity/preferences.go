package entity

import "time"

// QuietHours is a per-user local-time window during which non-bypassing
// notifications are suppressed. Start and End are "HH:MM" in Timezone;
// Start > End means the window wraps midnight.
type QuietHours struct {
	Enabled        bool      `json:"enabled"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	Timezone       string    `json:"timezone"`
	BypassPriority *Priority `json:"bypass_priority,omitempty"`
}

// EmailSettings routes the email channel.
type EmailSettings struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
}

// DiscordSettings routes the Discord channel. ChannelID is the resolved
// destination for channel-post mode; direct messages resolve the recipient
// through the user's Discord account link instead.
type DiscordSettings struct {
	Enabled   bool        `json:"enabled"`
	Mode      DiscordMode `json:"mode,omitempty"`
	GuildID   string      `json:"guild_id,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
}

// Preferences is one preference record. NetworkID is empty for the global
// record, which covers the global event types and doubles as the channel
// default when no network record exists.
type Preferences struct {
	UserID    string `json:"user_id"`
	NetworkID string `json:"network_id,omitempty"`

	Enabled bool            `json:"enabled"`
	Email   EmailSettings   `json:"email"`
	Discord DiscordSettings `json:"discord"`

	EnabledTypes    []NotificationType            `json:"enabled_types"`
	MinimumPriority Priority                      `json:"minimum_priority"`
	TypePriorities  map[NotificationType]Priority `json:"type_priorities,omitempty"`

	QuietHours QuietHours `json:"quiet_hours"`

	MaxNotificationsPerHour int `json:"max_notifications_per_hour"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TypeEnabled reports whether the event type is in the enabled set.
func (p *Preferences) TypeEnabled(t NotificationType) bool {
	for _, et := range p.EnabledTypes {
		if et == t {
			return true
		}
	}
	return false
}

// EffectivePriority applies the per-type override, falling back to the
// type's system default. An explicit override always wins, even when it
// downgrades the type.
func (p *Preferences) EffectivePriority(t NotificationType) Priority {
	if p.TypePriorities != nil {
		if override, ok := p.TypePriorities[t]; ok {
			return override
		}
	}
	return t.DefaultPriority()
}

const (
	DefaultMinimumPriority  = PriorityLow
	DefaultMaxPerHour       = 20
	DefaultQuietStart       = "22:00"
	DefaultQuietEnd         = "07:00"
	DefaultTimezone         = "UTC"
	globalDefaultMaxPerHour = 10
)

// DefaultPreferences is the record created lazily on first preference
// write for a network: everything on, all types enabled, no threshold.
func DefaultPreferences(userID, networkID string) *Preferences {
	return &Preferences{
		UserID:          userID,
		NetworkID:       networkID,
		Enabled:         true,
		EnabledTypes:    AllNotificationTypes(),
		MinimumPriority: DefaultMinimumPriority,
		QuietHours: QuietHours{
			Start:    DefaultQuietStart,
			End:      DefaultQuietEnd,
			Timezone: DefaultTimezone,
		},
		MaxNotificationsPerHour: DefaultMaxPerHour,
	}
}

// DefaultGlobalPreferences restricts the enabled set to the global types.
func DefaultGlobalPreferences(userID string) *Preferences {
	p := DefaultPreferences(userID, "")
	p.EnabledTypes = []NotificationType{CartographerUp, CartographerDown}
	p.MaxNotificationsPerHour = globalDefaultMaxPerHour
	return p
}

// PreferencesUpdate is a partial update: only non-nil fields change.
type PreferencesUpdate struct {
	Enabled *bool

	EmailEnabled *bool
	EmailAddress *string

	DiscordEnabled   *bool
	DiscordMode      *DiscordMode
	DiscordGuildID   *string
	DiscordChannelID *string

	EnabledTypes    *[]NotificationType
	MinimumPriority *Priority
	TypePriorities  *map[NotificationType]Priority

	QuietHoursEnabled *bool
	QuietStart        *string
	QuietEnd          *string
	Timezone          *string
	BypassPriority    *Priority
	ClearBypass       bool

	MaxNotificationsPerHour *int
}

// Apply merges the update into p.
func (u *PreferencesUpdate) Apply(p *Preferences) {
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.EmailEnabled != nil {
		p.Email.Enabled = *u.EmailEnabled
	}
	if u.EmailAddress != nil {
		p.Email.Address = *u.EmailAddress
	}
	if u.DiscordEnabled != nil {
		p.Discord.Enabled = *u.DiscordEnabled
	}
	if u.DiscordMode != nil {
		p.Discord.Mode = *u.DiscordMode
	}
	if u.DiscordGuildID != nil {
		p.Discord.GuildID = *u.DiscordGuildID
	}
	if u.DiscordChannelID != nil {
		p.Discord.ChannelID = *u.DiscordChannelID
	}
	if u.EnabledTypes != nil {
		p.EnabledTypes = *u.EnabledTypes
	}
	if u.MinimumPriority != nil {
		p.MinimumPriority = *u.MinimumPriority
	}
	if u.TypePriorities != nil {
		p.TypePriorities = *u.TypePriorities
	}
	if u.QuietHoursEnabled != nil {
		p.QuietHours.Enabled = *u.QuietHoursEnabled
	}
	if u.QuietStart != nil {
		p.QuietHours.Start = *u.QuietStart
	}
	if u.QuietEnd != nil {
		p.QuietHours.End = *u.QuietEnd
	}
	if u.Timezone != nil {
		p.QuietHours.Timezone = *u.Timezone
	}
	if u.ClearBypass {
		p.QuietHours.BypassPriority = nil
	} else if u.BypassPriority != nil {
		p.QuietHours.BypassPriority = u.BypassPriority
	}
	if u.MaxNotificationsPerHour != nil {
		p.MaxNotificationsPerHour = *u.MaxNotificationsPerHour
	}
}
