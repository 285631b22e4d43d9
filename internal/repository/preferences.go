package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	_networkPrefsTable = "user_network_notification_prefs"
	_globalPrefsTable  = "user_global_notification_prefs"

	prefColumns = "enabled, email_enabled, email_address, discord_enabled, discord_mode, " +
		"discord_guild_id, discord_channel_id, enabled_types, minimum_priority, type_priorities, " +
		"quiet_enabled, quiet_start, quiet_end, timezone, bypass_priority, max_per_hour, " +
		"created_at, updated_at"
)

// PreferenceRepository persists per-(user, network) and per-user global
// preference records. Records are single-owner, so writes are plain
// last-writer-wins upserts.
type PreferenceRepository struct {
	db *postgres.Postgres
}

func NewPreferenceRepository(db *postgres.Postgres) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) exec(qe postgres.QueryExecuter) postgres.QueryExecuter {
	if qe != nil {
		return qe
	}
	return r.db.Pool
}

// GetNetwork returns the record for (userID, networkID), or
// entity.ErrDataNotFound if the user never wrote network preferences.
func (r *PreferenceRepository) GetNetwork(ctx context.Context, qe postgres.QueryExecuter, userID, networkID string) (*entity.Preferences, error) {
	const op = "repository.PreferenceRepository.GetNetwork"

	sql, args, err := r.db.Builder.
		Select("user_id, network_id, " + prefColumns).
		From(_networkPrefsTable).
		Where(squirrel.Eq{"user_id": userID, "network_id": networkID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	p, err := r.scanPreferences(r.exec(qe).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return nil, fmt.Errorf("%s: scan row: %w", op, err)
	}
	return p, nil
}

// GetGlobal returns the user's global record, or entity.ErrDataNotFound.
func (r *PreferenceRepository) GetGlobal(ctx context.Context, qe postgres.QueryExecuter, userID string) (*entity.Preferences, error) {
	const op = "repository.PreferenceRepository.GetGlobal"

	sql, args, err := r.db.Builder.
		Select("user_id, '' AS network_id, " + prefColumns).
		From(_globalPrefsTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	p, err := r.scanPreferences(r.exec(qe).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
		}
		return nil, fmt.Errorf("%s: scan row: %w", op, err)
	}
	return p, nil
}

// Upsert writes the record in place, creating it on first write. The
// network table is keyed by (user_id, network_id), the global table by
// user_id alone.
func (r *PreferenceRepository) Upsert(ctx context.Context, qe postgres.QueryExecuter, p *entity.Preferences) error {
	const op = "repository.PreferenceRepository.Upsert"

	enabledTypes, err := json.Marshal(p.EnabledTypes)
	if err != nil {
		return fmt.Errorf("%s: marshal enabled_types: %w", op, err)
	}
	typePriorities, err := json.Marshal(p.TypePriorities)
	if err != nil {
		return fmt.Errorf("%s: marshal type_priorities: %w", op, err)
	}

	var bypass any
	if p.QuietHours.BypassPriority != nil {
		bypass = string(*p.QuietHours.BypassPriority)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	table := _globalPrefsTable
	columns := []string{"user_id"}
	values := []any{p.UserID}
	conflict := "(user_id)"
	if p.NetworkID != "" {
		table = _networkPrefsTable
		columns = append(columns, "network_id")
		values = append(values, p.NetworkID)
		conflict = "(user_id, network_id)"
	}

	columns = append(columns,
		"enabled", "email_enabled", "email_address", "discord_enabled", "discord_mode",
		"discord_guild_id", "discord_channel_id", "enabled_types", "minimum_priority",
		"type_priorities", "quiet_enabled", "quiet_start", "quiet_end", "timezone",
		"bypass_priority", "max_per_hour", "created_at", "updated_at",
	)
	values = append(values,
		p.Enabled, p.Email.Enabled, p.Email.Address, p.Discord.Enabled, string(p.Discord.Mode),
		p.Discord.GuildID, p.Discord.ChannelID, enabledTypes, string(p.MinimumPriority),
		typePriorities, p.QuietHours.Enabled, p.QuietHours.Start, p.QuietHours.End,
		p.QuietHours.Timezone, bypass, p.MaxNotificationsPerHour, p.CreatedAt, p.UpdatedAt,
	)

	sql, args, err := r.db.Builder.
		Insert(table).
		Columns(columns...).
		Values(values...).
		Suffix("ON CONFLICT " + conflict + " DO UPDATE SET " +
			"enabled = EXCLUDED.enabled, " +
			"email_enabled = EXCLUDED.email_enabled, " +
			"email_address = EXCLUDED.email_address, " +
			"discord_enabled = EXCLUDED.discord_enabled, " +
			"discord_mode = EXCLUDED.discord_mode, " +
			"discord_guild_id = EXCLUDED.discord_guild_id, " +
			"discord_channel_id = EXCLUDED.discord_channel_id, " +
			"enabled_types = EXCLUDED.enabled_types, " +
			"minimum_priority = EXCLUDED.minimum_priority, " +
			"type_priorities = EXCLUDED.type_priorities, " +
			"quiet_enabled = EXCLUDED.quiet_enabled, " +
			"quiet_start = EXCLUDED.quiet_start, " +
			"quiet_end = EXCLUDED.quiet_end, " +
			"timezone = EXCLUDED.timezone, " +
			"bypass_priority = EXCLUDED.bypass_priority, " +
			"max_per_hour = EXCLUDED.max_per_hour, " +
			"updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	if _, err := r.exec(qe).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	return nil
}

// DeleteNetwork removes the per-network record; resolution then falls back
// to the user's global record.
func (r *PreferenceRepository) DeleteNetwork(ctx context.Context, qe postgres.QueryExecuter, userID, networkID string) error {
	const op = "repository.PreferenceRepository.DeleteNetwork"

	sql, args, err := r.db.Builder.
		Delete(_networkPrefsTable).
		Where(squirrel.Eq{"user_id": userID, "network_id": networkID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.exec(qe).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PreferenceRepository) scanPreferences(scanner rowScanner) (*entity.Preferences, error) {
	var (
		p              entity.Preferences
		networkID      pgtype.Text
		mode           pgtype.Text
		enabledTypes   []byte
		typePriorities []byte
		bypass         pgtype.Text
	)

	err := scanner.Scan(
		&p.UserID,
		&networkID,
		&p.Enabled,
		&p.Email.Enabled,
		&p.Email.Address,
		&p.Discord.Enabled,
		&mode,
		&p.Discord.GuildID,
		&p.Discord.ChannelID,
		&enabledTypes,
		&p.MinimumPriority,
		&typePriorities,
		&p.QuietHours.Enabled,
		&p.QuietHours.Start,
		&p.QuietHours.End,
		&p.QuietHours.Timezone,
		&bypass,
		&p.MaxNotificationsPerHour,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if networkID.Valid {
		p.NetworkID = networkID.String
	}
	if mode.Valid {
		p.Discord.Mode = entity.DiscordMode(mode.String)
	}
	if len(enabledTypes) > 0 {
		if err := json.Unmarshal(enabledTypes, &p.EnabledTypes); err != nil {
			return nil, fmt.Errorf("unmarshal enabled_types: %w", err)
		}
	}
	if len(typePriorities) > 0 && string(typePriorities) != "null" {
		if err := json.Unmarshal(typePriorities, &p.TypePriorities); err != nil {
			return nil, fmt.Errorf("unmarshal type_priorities: %w", err)
		}
	}
	if bypass.Valid {
		bp := entity.Priority(bypass.String)
		p.QuietHours.BypassPriority = &bp
	}

	return &p, nil
}
