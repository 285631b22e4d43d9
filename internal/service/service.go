// Package service holds the engine's business logic: preference
// resolution, quiet hours, rate limiting, dispatch and the broadcast
// scheduler. Storage and transports are reached through the interfaces
// below so every piece is testable with fakes.
package service

import (
	"context"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/google/uuid"
)

type (
	// PreferenceStore is the durable preference record store.
	PreferenceStore interface {
		GetNetwork(ctx context.Context, qe postgres.QueryExecuter, userID, networkID string) (*entity.Preferences, error)
		GetGlobal(ctx context.Context, qe postgres.QueryExecuter, userID string) (*entity.Preferences, error)
		Upsert(ctx context.Context, qe postgres.QueryExecuter, p *entity.Preferences) error
		DeleteNetwork(ctx context.Context, qe postgres.QueryExecuter, userID, networkID string) error
	}

	// PreferenceCache is the bounded-TTL read-through cache in front of
	// the store, invalidated on write.
	PreferenceCache interface {
		GetPreferences(ctx context.Context, userID, networkID string) (*entity.Preferences, error)
		SetPreferences(ctx context.Context, p *entity.Preferences) error
		InvalidatePreferences(ctx context.Context, userID, networkID string) error
	}

	// NetworkStore reads network existence, membership and Discord links.
	NetworkStore interface {
		Exists(ctx context.Context, qe postgres.QueryExecuter, networkID string) (bool, error)
		MemberUserIDs(ctx context.Context, qe postgres.QueryExecuter, networkID string) ([]string, error)
		AllUserIDs(ctx context.Context, qe postgres.QueryExecuter) ([]string, error)
		DiscordUserID(ctx context.Context, qe postgres.QueryExecuter, userID string) (string, error)
	}

	// DeliveryLog is the idempotency-keyed delivery-attempt log.
	DeliveryLog interface {
		Claim(ctx context.Context, qe postgres.QueryExecuter, eventID, userID string, channel entity.Channel) (bool, error)
		SetOutcome(ctx context.Context, qe postgres.QueryExecuter, eventID, userID string, channel entity.Channel, outcome entity.DeliveryOutcome, attemptErr string) error
		CountDelivered(ctx context.Context, qe postgres.QueryExecuter, eventID string) (int, error)
	}

	// BroadcastStore persists scheduled broadcasts; ClaimDue and
	// MarkFired implement the exactly-once claim step.
	BroadcastStore interface {
		Create(ctx context.Context, qe postgres.QueryExecuter, b *entity.ScheduledBroadcast) error
		GetByID(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) (*entity.ScheduledBroadcast, error)
		ListByNetwork(ctx context.Context, qe postgres.QueryExecuter, networkID string, includeCompleted bool) ([]entity.ScheduledBroadcast, error)
		UpdatePending(ctx context.Context, qe postgres.QueryExecuter, b *entity.ScheduledBroadcast) error
		Cancel(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) error
		Delete(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) error
		ClaimDue(ctx context.Context, qe postgres.QueryExecuter, now time.Time, limit int) ([]entity.ScheduledBroadcast, error)
		MarkFired(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID, status entity.BroadcastStatus, usersNotified int, errMsg string) error
	}

	// RateLimiter is the shared sliding-window counter.
	RateLimiter interface {
		Allow(ctx context.Context, userID, networkID string, limit int) (bool, error)
	}

	// ChannelSink delivers one rendered notification to one target. The
	// transport itself lives outside the engine; a sink is its boundary.
	ChannelSink interface {
		Send(ctx context.Context, target entity.ChannelTarget, event entity.NetworkEvent, effective entity.Priority) error
	}
)
