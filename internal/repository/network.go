package repository

import (
	"context"
	"errors"
	"fmt"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// NetworkRepository reads the network membership snapshot maintained by
// the backend, plus the Discord account links written by the OAuth flow.
// Both tables are read-only from this service's point of view.
type NetworkRepository struct {
	db *postgres.Postgres
}

func NewNetworkRepository(db *postgres.Postgres) *NetworkRepository {
	return &NetworkRepository{db: db}
}

func (r *NetworkRepository) exec(qe postgres.QueryExecuter) postgres.QueryExecuter {
	if qe != nil {
		return qe
	}
	return r.db.Pool
}

// Exists reports whether the network still exists. A broadcast whose
// network was deleted mid-flight fails rather than fans out.
func (r *NetworkRepository) Exists(ctx context.Context, qe postgres.QueryExecuter, networkID string) (bool, error) {
	const op = "repository.NetworkRepository.Exists"

	sql, args, err := r.db.Builder.
		Select("1").
		From("networks").
		Where(squirrel.Eq{"id": networkID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: building query: %w", op, err)
	}

	var one int
	err = r.exec(qe).QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: query: %w", op, err)
	}
	return true, nil
}

// MemberUserIDs lists every user of the network, the fan-out set for
// network-scoped events and broadcasts.
func (r *NetworkRepository) MemberUserIDs(ctx context.Context, qe postgres.QueryExecuter, networkID string) ([]string, error) {
	const op = "repository.NetworkRepository.MemberUserIDs"

	sql, args, err := r.db.Builder.
		Select("user_id").
		From("network_members").
		Where(squirrel.Eq{"network_id": networkID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := r.exec(qe).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}
	return users, nil
}

// AllUserIDs lists every known user, the fan-out set for global event
// types (cartographer_up/down). Users who belong to no network but wrote
// a global preference record are still known users.
func (r *NetworkRepository) AllUserIDs(ctx context.Context, qe postgres.QueryExecuter) ([]string, error) {
	const op = "repository.NetworkRepository.AllUserIDs"

	sql := `
		SELECT user_id FROM network_members
		UNION
		SELECT user_id FROM user_global_notification_prefs`

	rows, err := r.exec(qe).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}
	return users, nil
}

// DiscordUserID resolves the linked Discord account for direct-message
// delivery, or entity.ErrRecipientNotLinked when the user never completed
// the OAuth link.
func (r *NetworkRepository) DiscordUserID(ctx context.Context, qe postgres.QueryExecuter, userID string) (string, error) {
	const op = "repository.NetworkRepository.DiscordUserID"

	sql, args, err := r.db.Builder.
		Select("discord_user_id").
		From("discord_user_links").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%s: building query: %w", op, err)
	}

	var discordID string
	err = r.exec(qe).QueryRow(ctx, sql, args...).Scan(&discordID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, entity.ErrRecipientNotLinked)
		}
		return "", fmt.Errorf("%s: query: %w", op, err)
	}
	return discordID, nil
}
