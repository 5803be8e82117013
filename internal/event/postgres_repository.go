package event

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL event repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const eventColumns = `id, slug, name, area_url, speed_mps, direction, starts_at, approx_duration_seconds, status, created_at, updated_at`

// Get retrieves an event by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	return r.scanEvent(ctx, query, id)
}

// GetBySlug retrieves an event by its slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE slug = $1
	`

	return r.scanEvent(ctx, query, slug)
}

// scanEvent scans a single event from a query.
func (r *PostgresRepository) scanEvent(ctx context.Context, query string, args ...interface{}) (*Event, error) {
	var (
		event           Event
		durationSeconds int64
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&event.ID,
		&event.Slug,
		&event.Name,
		&event.AreaURL,
		&event.Speed,
		&event.Direction,
		&event.StartsAt,
		&durationSeconds,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	event.ApproxDuration = secondsToDuration(durationSeconds)
	return &event, nil
}

// List retrieves events, newest start first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	fetchLimit := limit + 1

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE ($1 OR status != 'CANCELLED')
		  AND ($2::timestamptz IS NULL OR starts_at + approx_duration_seconds * interval '1 second' >= $2)
		ORDER BY starts_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, opts.IncludeCancelled, opts.From, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event           Event
			durationSeconds int64
		)
		err := rows.Scan(
			&event.ID,
			&event.Slug,
			&event.Name,
			&event.AreaURL,
			&event.Speed,
			&event.Direction,
			&event.StartsAt,
			&durationSeconds,
			&event.Status,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		event.ApproxDuration = secondsToDuration(durationSeconds)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{
		Items: events,
	}

	if len(events) > limit {
		result.Items = events[:limit]
		result.NextCursor = events[limit-1].ID
	}

	return result, nil
}

// Create creates a new event.
func (r *PostgresRepository) Create(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (id, slug, name, area_url, speed_mps, direction, starts_at, approx_duration_seconds, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Slug,
		event.Name,
		event.AreaURL,
		event.Speed,
		event.Direction,
		event.StartsAt,
		durationToSeconds(event.ApproxDuration),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation; the only unique constraint besides the
		// primary key is the slug.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// UpdateStatus transitions the event's stored lifecycle status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `
		UPDATE events SET
			status = $2,
			updated_at = now()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}

// Delete deletes an event.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}

func durationToSeconds(d time.Duration) int64 {
	return int64(d.Seconds())
}

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
