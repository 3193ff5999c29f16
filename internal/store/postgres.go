package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appLog "swingboard/internal/log"
	"swingboard/internal/model"
)

// PostgresSource loads the record list straight from the hosted Postgres
// events table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects a pgx pool for the given DSN.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

func (s *PostgresSource) Name() string { return "postgres" }

// Close releases the pool.
func (s *PostgresSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready verifies connectivity.
func (s *PostgresSource) Ready(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "select 1").Scan(&one)
}

const selectEvents = `
select id, title, category,
       coalesce(genre, ''), coalesce(scope, ''),
       coalesce(date, ''), coalesce(start_date, ''), coalesce(end_date, ''),
       event_dates, day_of_week,
       coalesce("time", ''), created_at,
       coalesce(organizer, ''), coalesce(location, ''), coalesce(dj, '')
from events`

// Load fetches every event row. Rows with a category outside the closed set
// are skipped rather than failing the whole snapshot.
func (s *PostgresSource) Load(ctx context.Context) ([]model.EventRecord, error) {
	rows, err := s.pool.Query(ctx, selectEvents)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	recs := make([]model.EventRecord, 0, 256)
	for rows.Next() {
		var rec model.EventRecord
		var category, scope string
		if err := rows.Scan(
			&rec.ID, &rec.Title, &category,
			&rec.Genre, &scope,
			&rec.Date, &rec.StartDate, &rec.EndDate,
			&rec.EventDates, &rec.DayOfWeek,
			&rec.Time, &rec.CreatedAt,
			&rec.Organizer, &rec.Location, &rec.DJ,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		cat, ok := model.ParseCategory(category)
		if !ok {
			appLog.Debug("events row has unknown category; skipping", "id", rec.ID, "category", category)
			continue
		}
		rec.Category = cat
		rec.Scope = model.Scope(scope)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return recs, nil
}
