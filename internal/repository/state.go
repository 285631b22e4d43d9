package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartographer-notify/pkg/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const _serviceStateTable = "service_state"

// ServiceState records the engine's own lifecycle so a restart can report
// approximate downtime in the cartographer_up notification.
type ServiceState struct {
	CleanShutdown bool
	LastShutdown  *time.Time
	LastStartup   *time.Time
}

type StateRepository struct {
	db *postgres.Postgres
}

func NewStateRepository(db *postgres.Postgres) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the previous run's state; (nil, nil) on very first startup.
func (r *StateRepository) Get(ctx context.Context) (*ServiceState, error) {
	const op = "repository.StateRepository.Get"

	var (
		s            ServiceState
		lastShutdown pgtype.Timestamptz
		lastStartup  pgtype.Timestamptz
	)
	err := r.db.Pool.QueryRow(ctx,
		"SELECT clean_shutdown, last_shutdown, last_startup FROM "+_serviceStateTable+" WHERE id = 1",
	).Scan(&s.CleanShutdown, &lastShutdown, &lastStartup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}

	if lastShutdown.Valid {
		t := lastShutdown.Time
		s.LastShutdown = &t
	}
	if lastStartup.Valid {
		t := lastStartup.Time
		s.LastStartup = &t
	}
	return &s, nil
}

// MarkStartup records that the service is running; clean_shutdown stays
// false until MarkShutdown.
func (r *StateRepository) MarkStartup(ctx context.Context) error {
	const op = "repository.StateRepository.MarkStartup"

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO `+_serviceStateTable+` (id, clean_shutdown, last_startup)
		VALUES (1, FALSE, $1)
		ON CONFLICT (id) DO UPDATE SET clean_shutdown = FALSE, last_startup = EXCLUDED.last_startup`,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	return nil
}

func (r *StateRepository) MarkShutdown(ctx context.Context) error {
	const op = "repository.StateRepository.MarkShutdown"

	_, err := r.db.Pool.Exec(ctx,
		"UPDATE "+_serviceStateTable+" SET clean_shutdown = TRUE, last_shutdown = $1 WHERE id = 1",
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: exec: %w", op, err)
	}
	return nil
}
