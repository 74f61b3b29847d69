package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadops_backend/platform/apperr"
)

// Reference lookups back the Redis-cached network/broker/campaign checks.

func (r *Repo) GetNetwork(ctx context.Context, id uuid.UUID) (ReferenceEntry, error) {
	return r.getReference(ctx, "client_networks", "client network not found", id)
}

func (r *Repo) GetBroker(ctx context.Context, id uuid.UUID) (ReferenceEntry, error) {
	return r.getReference(ctx, "client_brokers", "client broker not found", id)
}

func (r *Repo) GetCampaign(ctx context.Context, id uuid.UUID) (ReferenceEntry, error) {
	return r.getReference(ctx, "campaigns", "campaign not found", id)
}

func (r *Repo) ListNetworks(ctx context.Context) ([]ReferenceEntry, error) {
	return r.listReference(ctx, "client_networks")
}

func (r *Repo) ListBrokers(ctx context.Context) ([]ReferenceEntry, error) {
	return r.listReference(ctx, "client_brokers")
}

func (r *Repo) ListCampaigns(ctx context.Context) ([]ReferenceEntry, error) {
	return r.listReference(ctx, "campaigns")
}

func (r *Repo) getReference(ctx context.Context, table, notFoundMsg string, id uuid.UUID) (ReferenceEntry, error) {
	query := fmt.Sprintf(`SELECT id, name, active FROM %s WHERE id = $1`, table)

	var entry ReferenceEntry
	if err := r.pool.QueryRow(ctx, query, id).Scan(&entry.ID, &entry.Name, &entry.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReferenceEntry{}, apperr.NotFound(notFoundMsg)
		}
		return ReferenceEntry{}, fmt.Errorf("get %s: %w", table, err)
	}
	return entry, nil
}

func (r *Repo) listReference(ctx context.Context, table string) ([]ReferenceEntry, error) {
	query := fmt.Sprintf(`SELECT id, name, active FROM %s ORDER BY name`, table)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var entries []ReferenceEntry
	for rows.Next() {
		var entry ReferenceEntry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Active); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return entries, nil
}
