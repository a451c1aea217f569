package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository increments per-user result counters in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) IncrementWin(ctx context.Context, username string) error {
	return r.increment(ctx, "wins", username)
}

func (r *Repository) IncrementLoss(ctx context.Context, username string) error {
	return r.increment(ctx, "losses", username)
}

func (r *Repository) IncrementDraw(ctx context.Context, username string) error {
	return r.increment(ctx, "draws", username)
}

// increment bumps a whitelisted counter column by one. A missing user row
// yields ErrUnknownUser rather than silence so callers can log it.
func (r *Repository) increment(ctx context.Context, column, username string) error {
	switch column {
	case "wins", "losses", "draws":
	default:
		return fmt.Errorf("unknown counter column %q", column)
	}
	q := fmt.Sprintf("UPDATE users SET %s = %s + 1 WHERE username = $1", column, column)
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUnknownUser
	}
	return nil
}
