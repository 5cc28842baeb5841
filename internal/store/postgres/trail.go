package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opengrc/attest/internal/domain"
)

type TrailRepo struct {
	pool *pgxpool.Pool
}

func NewTrailRepo(pool *pgxpool.Pool) *TrailRepo {
	return &TrailRepo{pool: pool}
}

func (r *TrailRepo) Record(ctx context.Context, entry *domain.TrailEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("trailRepo.Record: marshal details: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO trail_entries (id, actor_id, action, resource, resource_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, entry.Action, entry.Resource, entry.ResourceID, details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("trailRepo.Record: %w", err)
	}

	return nil
}

func (r *TrailRepo) ListByResource(ctx context.Context, resource string, resourceID uuid.UUID) ([]*domain.TrailEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, action, resource, resource_id, details, created_at
		 FROM trail_entries WHERE resource = $1 AND resource_id = $2
		 ORDER BY created_at DESC
		 LIMIT 500`,
		resource, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("trailRepo.ListByResource: %w", err)
	}
	defer rows.Close()

	return scanTrailEntries(rows, "trailRepo.ListByResource")
}

func (r *TrailRepo) ListRecent(ctx context.Context, limit, offset int) ([]*domain.TrailEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, action, resource, resource_id, details, created_at
		 FROM trail_entries
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("trailRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	return scanTrailEntries(rows, "trailRepo.ListRecent")
}

func scanTrailEntries(rows pgx.Rows, caller string) ([]*domain.TrailEntry, error) {
	var entries []*domain.TrailEntry
	for rows.Next() {
		var entry domain.TrailEntry
		var details []byte

		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Resource, &entry.ResourceID, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
