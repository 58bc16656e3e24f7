package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lib/pq"

	"github.com/example/scrap-bidding/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate runs every .sql file in dir in name order.
func (p *PostgresStore) Migrate(ctx context.Context, dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	applied := make([]string, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return applied, err
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return applied, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		applied = append(applied, filepath.Base(f))
	}
	return applied, nil
}

func (p *PostgresStore) SaveBid(ctx context.Context, collectorID string, b models.Bid) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO local_bids(id, collector_id, job_id, amount, status, created_at)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET job_id=EXCLUDED.job_id, amount=EXCLUDED.amount, status=EXCLUDED.status`,
		b.ID, collectorID, b.JobID, b.Amount, string(b.Status), b.CreatedAt)
	return err
}

func (p *PostgresStore) ListBids(ctx context.Context, collectorID string) ([]models.Bid, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, job_id, amount, status, created_at FROM local_bids
		WHERE collector_id=$1 ORDER BY created_at, id`, collectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Bid
	for rows.Next() {
		var b models.Bid
		var status string
		if err := rows.Scan(&b.ID, &b.JobID, &b.Amount, &status, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Status = models.BidStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteBids(ctx context.Context, collectorID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM local_bids WHERE collector_id=$1 AND id = ANY($2)`, collectorID, pq.Array(ids))
	return err
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }
