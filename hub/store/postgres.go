package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps approvals in the openRadius database so they survive
// full restarts of the monitoring stack.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS service_approvals (
			service_name TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			approved_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure service_approvals schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApproval(ctx context.Context, serviceName string) (*Approval, error) {
	var a Approval
	err := s.pool.QueryRow(ctx,
		`SELECT service_name, display_name, approved_at FROM service_approvals WHERE service_name = $1`,
		serviceName,
	).Scan(&a.ServiceName, &a.DisplayName, &a.ApprovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval for %s: %w", serviceName, err)
	}
	return &a, nil
}

func (s *PostgresStore) SaveApproval(ctx context.Context, a *Approval) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO service_approvals (service_name, display_name, approved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (service_name) DO UPDATE
		SET display_name = EXCLUDED.display_name, approved_at = EXCLUDED.approved_at`,
		a.ServiceName, a.DisplayName, a.ApprovedAt)
	if err != nil {
		return fmt.Errorf("save approval for %s: %w", a.ServiceName, err)
	}
	return nil
}

func (s *PostgresStore) DeleteApproval(ctx context.Context, serviceName string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM service_approvals WHERE service_name = $1`, serviceName)
	if err != nil {
		return fmt.Errorf("delete approval for %s: %w", serviceName, err)
	}
	return nil
}

func (s *PostgresStore) ListApprovals(ctx context.Context) ([]*Approval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT service_name, display_name, approved_at FROM service_approvals ORDER BY service_name`)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []*Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.ServiceName, &a.DisplayName, &a.ApprovedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
