package service

import (
	"cartographer-notify/internal/entity"
)

// Resolution is the resolver's outcome: either a delivery plan or a
// suppression reason.
type Resolution struct {
	Delivery *entity.ResolvedDelivery
	Reason   entity.SuppressReason
}

func (r Resolution) Suppressed() bool {
	return r.Delivery == nil
}

func suppressed(reason entity.SuppressReason) Resolution {
	return Resolution{Reason: reason}
}

// Resolve decides whether the event reaches the user and over which
// channels. prefs is the user's effective record (network-scoped if one
// exists, else the global record); nil means the user has no applicable
// record at all. discordUserID is the user's linked Discord account, used
// only for direct-message mode; empty means unlinked.
//
// The function is pure: all state it needs arrives as arguments.
func Resolve(event entity.NetworkEvent, prefs *entity.Preferences, discordUserID string) Resolution {
	if prefs == nil || !prefs.Enabled {
		return suppressed(entity.SuppressDisabled)
	}

	// Unknown future types are opt-in: absent from the enabled set they
	// never deliver, whatever their priority.
	if !prefs.TypeEnabled(event.Type) {
		return suppressed(entity.SuppressDisabled)
	}

	effective := prefs.EffectivePriority(event.Type)
	if !effective.AtLeast(prefs.MinimumPriority) {
		return suppressed(entity.SuppressBelowThreshold)
	}

	targets := resolveTargets(prefs, discordUserID)
	if len(targets) == 0 {
		return suppressed(entity.SuppressNoChannel)
	}

	return Resolution{Delivery: &entity.ResolvedDelivery{
		UserID:            prefs.UserID,
		NetworkID:         event.NetworkID,
		EffectivePriority: effective,
		Targets:           targets,
		QuietHours:        prefs.QuietHours,
		MaxPerHour:        prefs.MaxNotificationsPerHour,
	}}
}

func resolveTargets(prefs *entity.Preferences, discordUserID string) []entity.ChannelTarget {
	var targets []entity.ChannelTarget

	if prefs.Email.Enabled && prefs.Email.Address != "" {
		targets = append(targets, entity.ChannelTarget{
			Channel: entity.ChannelEmail,
			Address: prefs.Email.Address,
		})
	}

	if prefs.Discord.Enabled {
		switch prefs.Discord.Mode {
		case entity.DiscordChannelPost:
			if prefs.Discord.ChannelID != "" {
				targets = append(targets, entity.ChannelTarget{
					Channel: entity.ChannelDiscord,
					Address: prefs.Discord.ChannelID,
					Mode:    entity.DiscordChannelPost,
				})
			}
		case entity.DiscordDirectMessage:
			if discordUserID != "" {
				targets = append(targets, entity.ChannelTarget{
					Channel: entity.ChannelDiscord,
					Address: discordUserID,
					Mode:    entity.DiscordDirectMessage,
				})
			}
		}
	}

	return targets
}
