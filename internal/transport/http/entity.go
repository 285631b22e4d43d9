// nolint: revive
// swagger:meta
package httpt

import (
	"time"

	"cartographer-notify/internal/entity"
)

// swagger:model UpdatePreferencesRequest
type UpdatePreferencesRequest struct {
	Enabled *bool `json:"enabled,omitempty"`

	EmailEnabled *bool   `json:"email_enabled,omitempty"`
	EmailAddress *string `json:"email_address,omitempty" example:"ops@example.com"`

	DiscordEnabled   *bool   `json:"discord_enabled,omitempty"`
	DiscordMode      *string `json:"discord_mode,omitempty" example:"channel"`
	DiscordGuildID   *string `json:"discord_guild_id,omitempty"`
	DiscordChannelID *string `json:"discord_channel_id,omitempty"`

	EnabledTypes    *[]string          `json:"enabled_types,omitempty"`
	MinimumPriority *string            `json:"minimum_priority,omitempty" example:"medium"`
	TypePriorities  *map[string]string `json:"type_priorities,omitempty"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietStart        *string `json:"quiet_start,omitempty" example:"22:00"`
	QuietEnd          *string `json:"quiet_end,omitempty"   example:"07:00"`
	Timezone          *string `json:"timezone,omitempty"    example:"Europe/Amsterdam"`
	BypassPriority    *string `json:"bypass_priority,omitempty" example:"critical"`
	ClearBypass       bool    `json:"clear_bypass,omitempty"`

	MaxNotificationsPerHour *int `json:"max_notifications_per_hour,omitempty" example:"20"`
}

func (r *UpdatePreferencesRequest) toUpdate() *entity.PreferencesUpdate {
	u := &entity.PreferencesUpdate{
		Enabled:                 r.Enabled,
		EmailEnabled:            r.EmailEnabled,
		EmailAddress:            r.EmailAddress,
		DiscordEnabled:          r.DiscordEnabled,
		DiscordGuildID:          r.DiscordGuildID,
		DiscordChannelID:        r.DiscordChannelID,
		QuietHoursEnabled:       r.QuietHoursEnabled,
		QuietStart:              r.QuietStart,
		QuietEnd:                r.QuietEnd,
		Timezone:                r.Timezone,
		ClearBypass:             r.ClearBypass,
		MaxNotificationsPerHour: r.MaxNotificationsPerHour,
	}
	if r.DiscordMode != nil {
		mode := entity.DiscordMode(*r.DiscordMode)
		u.DiscordMode = &mode
	}
	if r.EnabledTypes != nil {
		types := make([]entity.NotificationType, 0, len(*r.EnabledTypes))
		for _, t := range *r.EnabledTypes {
			types = append(types, entity.NotificationType(t))
		}
		u.EnabledTypes = &types
	}
	if r.MinimumPriority != nil {
		p := entity.Priority(*r.MinimumPriority)
		u.MinimumPriority = &p
	}
	if r.TypePriorities != nil {
		overrides := make(map[entity.NotificationType]entity.Priority, len(*r.TypePriorities))
		for t, p := range *r.TypePriorities {
			overrides[entity.NotificationType(t)] = entity.Priority(p)
		}
		u.TypePriorities = &overrides
	}
	if r.BypassPriority != nil {
		p := entity.Priority(*r.BypassPriority)
		u.BypassPriority = &p
	}
	return u
}

// swagger:model CreateBroadcastRequest
type CreateBroadcastRequest struct {
	NetworkID   string    `json:"network_id"        binding:"required"`
	Title       string    `json:"title"             binding:"required" example:"Maintenance window"`
	Message     string    `json:"message"           binding:"required"`
	Type        string    `json:"notification_type" binding:"required" example:"scheduled_maintenance"`
	Priority    string    `json:"priority"          binding:"required" example:"medium"`
	ScheduledAt time.Time `json:"scheduled_at"      binding:"required" example:"2026-09-01T22:00:00Z"`
	Timezone    string    `json:"timezone"          example:"Europe/Amsterdam"`
}

// swagger:model UpdateBroadcastRequest
type UpdateBroadcastRequest struct {
	Title       *string    `json:"title,omitempty"`
	Message     *string    `json:"message,omitempty"`
	Type        *string    `json:"notification_type,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Timezone    *string    `json:"timezone,omitempty"`
}

func (r *UpdateBroadcastRequest) toUpdate() *entity.BroadcastUpdate {
	u := &entity.BroadcastUpdate{
		Title:       r.Title,
		Message:     r.Message,
		ScheduledAt: r.ScheduledAt,
		Timezone:    r.Timezone,
	}
	if r.Type != nil {
		t := entity.NotificationType(*r.Type)
		u.Type = &t
	}
	if r.Priority != nil {
		p := entity.Priority(*r.Priority)
		u.Priority = &p
	}
	return u
}

// swagger:model TestDeliveryRequest
type TestDeliveryRequest struct {
	Channel   string `json:"channel"    binding:"required" example:"email"`
	NetworkID string `json:"network_id" example:"net-42"`
}

// swagger:model IngestEventRequest
type IngestEventRequest struct {
	Type      string            `json:"event_type" binding:"required" example:"device_offline"`
	NetworkID string            `json:"network_id"`
	Priority  string            `json:"priority"   example:"high"`
	Title     string            `json:"title"      binding:"required"`
	Message   string            `json:"message"    binding:"required"`
	Details   map[string]string `json:"details,omitempty"`
}

// swagger:model DeliveryReportResponse
type DeliveryReportResponse struct {
	EventID    string         `json:"event_id"`
	Delivered  int            `json:"delivered"`
	Failed     int            `json:"failed"`
	Suppressed map[string]int `json:"suppressed,omitempty"`
}

func toReportResponse(report *entity.DeliveryReport) DeliveryReportResponse {
	resp := DeliveryReportResponse{
		EventID:   report.EventID,
		Delivered: report.Delivered,
		Failed:    report.Failed,
	}
	if len(report.Suppressed) > 0 {
		resp.Suppressed = make(map[string]int, len(report.Suppressed))
		for reason, n := range report.Suppressed {
			resp.Suppressed[string(reason)] = n
		}
	}
	return resp
}

// swagger:model ErrorResponse
type ErrorResponse struct {
	Error   string `json:"error"             example:"broadcast not found"`
	Code    string `json:"code,omitempty"    example:"not_found"`
	Details string `json:"details,omitempty"`
}

// swagger:model SuccessResponse
type SuccessResponse struct {
	Message string `json:"message" example:"Broadcast cancelled successfully"`
}
