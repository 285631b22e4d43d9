package repository

import (
	"context"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/Masterminds/squirrel"
)

const _deliveryAttemptsTable = "delivery_attempts"

// DeliveryRepository is the delivery-attempt log. The unique key
// (event_id, user_id, channel) is the dispatcher's idempotency key:
// claiming an attempt that already exists reports a duplicate and the
// sink is never invoked again.
type DeliveryRepository struct {
	db *postgres.Postgres
}

func NewDeliveryRepository(db *postgres.Postgres) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) exec(qe postgres.QueryExecuter) postgres.QueryExecuter {
	if qe != nil {
		return qe
	}
	return r.db.Pool
}

// Claim inserts the attempt row for the idempotency tuple. It returns
// false when the row already exists, in which case a duplicate attempt is
// recorded for observability but no delivery may happen.
func (r *DeliveryRepository) Claim(ctx context.Context, qe postgres.QueryExecuter, eventID, userID string, channel entity.Channel) (bool, error) {
	const op = "repository.DeliveryRepository.Claim"

	sql, args, err := r.db.Builder.
		Insert(_deliveryAttemptsTable).
		Columns("event_id", "user_id", "channel", "outcome", "created_at").
		Values(eventID, userID, string(channel), string(entity.OutcomeFailed), time.Now().UTC()).
		Suffix("ON CONFLICT (event_id, user_id, channel) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: building query: %w", op, err)
	}

	res, err := r.exec(qe).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("%s: exec: %w", op, err)
	}
	return res.RowsAffected() > 0, nil
}

// SetOutcome finalizes a claimed attempt.
func (r *DeliveryRepository) SetOutcome(ctx context.Context, qe postgres.QueryExecuter, eventID, userID string, channel entity.Channel, outcome entity.DeliveryOutcome, attemptErr string) error {
	const op = "repository.DeliveryRepository.SetOutcome"

	sql, args, err := r.db.Builder.
		Update(_deliveryAttemptsTable).
		Set("outcome", string(outcome)).
		Set("error", attemptErr).
		Where(squirrel.Eq{"event_id": eventID, "user_id": userID, "channel": string(channel)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: building query: %w", op, err)
	}

	if _, err := r.exec(qe).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	return nil
}

// CountDelivered counts distinct users with at least one sent channel for
// the event; feeds the broadcast's users_notified audit field.
func (r *DeliveryRepository) CountDelivered(ctx context.Context, qe postgres.QueryExecuter, eventID string) (int, error) {
	const op = "repository.DeliveryRepository.CountDelivered"

	sql, args, err := r.db.Builder.
		Select("COUNT(DISTINCT user_id)").
		From(_deliveryAttemptsTable).
		Where(squirrel.Eq{"event_id": eventID, "outcome": string(entity.OutcomeSent)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: building query: %w", op, err)
	}

	var count int
	if err := r.exec(qe).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: query: %w", op, err)
	}
	return count, nil
}
