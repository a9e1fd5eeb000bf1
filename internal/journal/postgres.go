package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
)

//go:embed migrations/001_create_dispatch_outcomes.sql
var migrationSQL string

// Postgres appends terminal outcomes to the dispatch_outcomes table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO dispatch_outcomes
			(booking_id, ride_id, outcome, driver_id, reason, candidates, tried, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.BookingID, e.RideID, e.Outcome,
		nullable(e.DriverID), nullable(e.Reason),
		e.Candidates, e.Tried, e.At)
	if err != nil {
		return fmt.Errorf("insert dispatch outcome: %w", err)
	}
	return nil
}

// Migrate creates the outcomes table when it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("migrate dispatch_outcomes: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
