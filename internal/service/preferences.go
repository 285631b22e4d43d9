package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"

	"go.uber.org/zap"
)

// PreferenceService owns preference records: lazy creation on first
// write, partial updates, per-network removal with global fallback, and
// the cached effective-record lookup the pipeline uses.
type PreferenceService struct {
	store PreferenceStore
	cache PreferenceCache
	log   *zap.Logger
}

func NewPreferenceService(store PreferenceStore, cache PreferenceCache, log *zap.Logger) *PreferenceService {
	return &PreferenceService{
		store: store,
		cache: cache,
		log:   log,
	}
}

// GetNetwork returns the user's record for the network, or the defaults
// when none was ever written. Reads never create records.
func (s *PreferenceService) GetNetwork(ctx context.Context, userID, networkID string) (*entity.Preferences, error) {
	const op = "service.PreferenceService.GetNetwork"

	p, err := s.store.GetNetwork(ctx, nil, userID, networkID)
	if err != nil {
		if errors.Is(err, entity.ErrDataNotFound) {
			return entity.DefaultPreferences(userID, networkID), nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetGlobal returns the user's global record, or its defaults.
func (s *PreferenceService) GetGlobal(ctx context.Context, userID string) (*entity.Preferences, error) {
	const op = "service.PreferenceService.GetGlobal"

	p, err := s.store.GetGlobal(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, entity.ErrDataNotFound) {
			return entity.DefaultGlobalPreferences(userID), nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Update applies a partial update, creating the record from defaults on
// first write. networkID == "" targets the global record. Writes are
// last-writer-wins; the record is single-owner.
func (s *PreferenceService) Update(ctx context.Context, userID, networkID string, update *entity.PreferencesUpdate) (*entity.Preferences, error) {
	const op = "service.PreferenceService.Update"

	if err := s.validateUpdate(update); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		current *entity.Preferences
		err     error
	)
	if networkID == "" {
		current, err = s.GetGlobal(ctx, userID)
	} else {
		current, err = s.GetNetwork(ctx, userID, networkID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	update.Apply(current)

	if err := s.store.Upsert(ctx, nil, current); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.InvalidatePreferences(ctx, userID, networkID); err != nil {
		s.log.Warn("preference cache invalidation failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	s.log.Info("preferences updated",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.String("network_id", networkID),
	)
	return current, nil
}

// DeleteNetwork removes the per-network record so resolution falls back
// to the user's global preferences.
func (s *PreferenceService) DeleteNetwork(ctx context.Context, userID, networkID string) error {
	const op = "service.PreferenceService.DeleteNetwork"

	if err := s.store.DeleteNetwork(ctx, nil, userID, networkID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.InvalidatePreferences(ctx, userID, networkID); err != nil {
		s.log.Warn("preference cache invalidation failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

// Effective returns the record the resolver should use for an event on
// the given network: the network-scoped record when one exists, else the
// user's global record, else nil (no applicable record). Global event
// types pass networkID == "" and go straight to the global record.
// Reads go through the cache; misses fall back to the store and
// re-populate it.
func (s *PreferenceService) Effective(ctx context.Context, userID, networkID string) (*entity.Preferences, error) {
	const op = "service.PreferenceService.Effective"

	if networkID != "" {
		p, err := s.cached(ctx, userID, networkID, func() (*entity.Preferences, error) {
			return s.store.GetNetwork(ctx, nil, userID, networkID)
		})
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, entity.ErrDataNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// No network record: fall through to the global record.
	}

	p, err := s.cached(ctx, userID, "", func() (*entity.Preferences, error) {
		return s.store.GetGlobal(ctx, nil, userID)
	})
	if err != nil {
		if errors.Is(err, entity.ErrDataNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PreferenceService) cached(ctx context.Context, userID, networkID string, load func() (*entity.Preferences, error)) (*entity.Preferences, error) {
	if p, err := s.cache.GetPreferences(ctx, userID, networkID); err == nil {
		return p, nil
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetPreferences(ctx, p); err != nil {
		s.log.Debug("preference cache write failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return p, nil
}

func (s *PreferenceService) validateUpdate(u *entity.PreferencesUpdate) error {
	if u.MinimumPriority != nil && !u.MinimumPriority.IsValid() {
		return fmt.Errorf("minimum_priority %q: %w", *u.MinimumPriority, entity.ErrInvalidData)
	}
	if u.BypassPriority != nil && !u.BypassPriority.IsValid() {
		return fmt.Errorf("bypass_priority %q: %w", *u.BypassPriority, entity.ErrInvalidData)
	}
	if u.DiscordMode != nil && *u.DiscordMode != entity.DiscordChannelPost && *u.DiscordMode != entity.DiscordDirectMessage {
		return fmt.Errorf("discord mode %q: %w", *u.DiscordMode, entity.ErrInvalidData)
	}
	// Unknown notification types are stored as written: they are opt-in
	// at resolve time, so a record may enable a type this build does not
	// ship yet.
	if u.EnabledTypes != nil {
		for _, t := range *u.EnabledTypes {
			if t == "" {
				return fmt.Errorf("empty notification type: %w", entity.ErrInvalidData)
			}
		}
	}
	if u.TypePriorities != nil {
		for t, p := range *u.TypePriorities {
			if t == "" || !p.IsValid() {
				return fmt.Errorf("type priority override %s=%s: %w", t, p, entity.ErrInvalidData)
			}
		}
	}
	if u.Timezone != nil {
		if _, err := time.LoadLocation(*u.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", *u.Timezone, entity.ErrInvalidData)
		}
	}
	if u.QuietStart != nil {
		if _, err := parseClock(*u.QuietStart); err != nil {
			return fmt.Errorf("quiet_start: %w", entity.ErrInvalidData)
		}
	}
	if u.QuietEnd != nil {
		if _, err := parseClock(*u.QuietEnd); err != nil {
			return fmt.Errorf("quiet_end: %w", entity.ErrInvalidData)
		}
	}
	if u.MaxNotificationsPerHour != nil && *u.MaxNotificationsPerHour < 0 {
		return fmt.Errorf("max_notifications_per_hour must be >= 0: %w", entity.ErrInvalidData)
	}
	return nil
}
