package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	_broadcastsTable = "scheduled_broadcasts"

	broadcastColumns = "id, network_id, title, message, notification_type, priority, " +
		"scheduled_at, timezone, status, created_at, created_by, sent_at, users_notified, error_message"
)

// BroadcastRepository persists scheduled broadcasts. The claim step
// (pending -> firing) is a conditional update so concurrent sweeps can
// never fire the same row twice.
type BroadcastRepository struct {
	db *postgres.Postgres
}

func NewBroadcastRepository(db *postgres.Postgres) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

func (r *BroadcastRepository) exec(qe postgres.QueryExecuter) postgres.QueryExecuter {
	if qe != nil {
		return qe
	}
	return r.db.Pool
}

func (r *BroadcastRepository) Create(ctx context.Context, qe postgres.QueryExecuter, b *entity.ScheduledBroadcast) error {
	const op = "repository.BroadcastRepository.Create"

	sql, args, err := r.db.Builder.
		Insert(_broadcastsTable).
		Columns("id", "network_id", "title", "message", "notification_type", "priority",
			"scheduled_at", "timezone", "status", "created_at", "created_by").
		Values(b.ID, b.NetworkID, b.Title, b.Message, string(b.Type), string(b.Priority),
			b.ScheduledAt, b.Timezone, string(b.Status), b.CreatedAt, b.CreatedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	if _, err := r.exec(qe).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s: %w", op, entity.ErrConflictingData)
		}
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	return nil
}

func (r *BroadcastRepository) GetByID(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) (*entity.ScheduledBroadcast, error) {
	const op = "repository.BroadcastRepository.GetByID"

	sql, args, err := r.db.Builder.
		Select(broadcastColumns).
		From(_broadcastsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	b, err := r.scanBroadcast(r.exec(qe).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrBroadcastNotFound)
		}
		return nil, fmt.Errorf("%s: scan row: %w", op, err)
	}
	return b, nil
}

// ListByNetwork returns broadcasts for the network, newest schedule first.
// Without includeCompleted only pending and firing rows are returned.
func (r *BroadcastRepository) ListByNetwork(ctx context.Context, qe postgres.QueryExecuter, networkID string, includeCompleted bool) ([]entity.ScheduledBroadcast, error) {
	const op = "repository.BroadcastRepository.ListByNetwork"

	q := r.db.Builder.
		Select(broadcastColumns).
		From(_broadcastsTable).
		Where(squirrel.Eq{"network_id": networkID}).
		OrderBy("scheduled_at DESC")

	if !includeCompleted {
		q = q.Where(squirrel.Eq{"status": []string{
			string(entity.BroadcastPending),
			string(entity.BroadcastFiring),
		}})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := r.exec(qe).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var results []entity.ScheduledBroadcast
	for rows.Next() {
		b, err := r.scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		results = append(results, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}
	return results, nil
}

// UpdatePending overwrites the mutable fields, but only while the row is
// still pending; zero rows affected means the broadcast left the pending
// window in the meantime.
func (r *BroadcastRepository) UpdatePending(ctx context.Context, qe postgres.QueryExecuter, b *entity.ScheduledBroadcast) error {
	const op = "repository.BroadcastRepository.UpdatePending"

	sql, args, err := r.db.Builder.
		Update(_broadcastsTable).
		Set("title", b.Title).
		Set("message", b.Message).
		Set("notification_type", string(b.Type)).
		Set("priority", string(b.Priority)).
		Set("scheduled_at", b.ScheduledAt).
		Set("timezone", b.Timezone).
		Where(squirrel.Eq{"id": b.ID, "status": string(entity.BroadcastPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.exec(qe).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrBroadcastNotPending)
	}
	return nil
}

// Cancel transitions pending -> cancelled. Zero rows affected means the
// broadcast was already claimed, sent or cancelled.
func (r *BroadcastRepository) Cancel(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) error {
	const op = "repository.BroadcastRepository.Cancel"

	sql, args, err := r.db.Builder.
		Update(_broadcastsTable).
		Set("status", string(entity.BroadcastCancelled)).
		Where(squirrel.Eq{"id": id, "status": string(entity.BroadcastPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.exec(qe).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrBroadcastNotPending)
	}
	return nil
}

func (r *BroadcastRepository) Delete(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID) error {
	const op = "repository.BroadcastRepository.Delete"

	sql, args, err := r.db.Builder.
		Delete(_broadcastsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.exec(qe).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrBroadcastNotFound)
	}
	return nil
}

// ClaimDue atomically claims up to limit due pending broadcasts by moving
// them to firing and returning the claimed rows. FOR UPDATE SKIP LOCKED on
// the inner select keeps concurrent sweeps off each other's rows.
func (r *BroadcastRepository) ClaimDue(ctx context.Context, qe postgres.QueryExecuter, now time.Time, limit int) ([]entity.ScheduledBroadcast, error) {
	const op = "repository.BroadcastRepository.ClaimDue"

	sql := `
		UPDATE ` + _broadcastsTable + ` SET status = $1
		WHERE id IN (
			SELECT id FROM ` + _broadcastsTable + `
			WHERE status = $2 AND scheduled_at <= $3
			ORDER BY scheduled_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + broadcastColumns

	rows, err := r.exec(qe).Query(ctx, sql,
		string(entity.BroadcastFiring), string(entity.BroadcastPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var claimed []entity.ScheduledBroadcast
	for rows.Next() {
		b, err := r.scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		claimed = append(claimed, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}
	return claimed, nil
}

// MarkFired records the terminal outcome of a claimed broadcast.
func (r *BroadcastRepository) MarkFired(ctx context.Context, qe postgres.QueryExecuter, id uuid.UUID, status entity.BroadcastStatus, usersNotified int, errMsg string) error {
	const op = "repository.BroadcastRepository.MarkFired"

	update := r.db.Builder.
		Update(_broadcastsTable).
		Set("status", string(status)).
		Set("users_notified", usersNotified).
		Where(squirrel.Eq{"id": id, "status": string(entity.BroadcastFiring)})

	if status == entity.BroadcastSent {
		update = update.Set("sent_at", time.Now().UTC())
	}
	if errMsg != "" {
		update = update.Set("error_message", errMsg)
	}

	sql, args, err := update.ToSql()
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

func (r *BroadcastRepository) scanBroadcast(scanner rowScanner) (*entity.ScheduledBroadcast, error) {
	var (
		b      entity.ScheduledBroadcast
		sentAt pgtype.Timestamptz
		errMsg pgtype.Text
	)

	err := scanner.Scan(
		&b.ID,
		&b.NetworkID,
		&b.Title,
		&b.Message,
		&b.Type,
		&b.Priority,
		&b.ScheduledAt,
		&b.Timezone,
		&b.Status,
		&b.CreatedAt,
		&b.CreatedBy,
		&sentAt,
		&b.UsersNotified,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		t := sentAt.Time
		b.SentAt = &t
	}
	if errMsg.Valid {
		b.ErrorMessage = errMsg.String
	}
	return &b, nil
}
