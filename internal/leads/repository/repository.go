// Package repository persists pool leads.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadops_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `id, category, full_name, email, phone, country, gender, source,
	assigned_agent_id, last_allocated_at, archived, active, created_at, updated_at`

// Repo implements the leads repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a lead into the pool.
func (r *Repo) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	query := fmt.Sprintf(`
		INSERT INTO leads (category, full_name, email, phone, country, gender, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		params.Category, params.FullName, params.Email, params.Phone,
		params.Country, params.Gender, params.Source,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// GetByID retrieves a lead.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// List retrieves leads with filters and pagination, newest first.
func (r *Repo) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	clauses := []string{"TRUE"}
	args := []interface{}{}

	if params.Category != "" {
		args = append(args, params.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if params.Country != "" {
		args = append(args, params.Country)
		clauses = append(clauses, fmt.Sprintf("country ILIKE $%d", len(args)))
	}
	if params.Gender != "" {
		args = append(args, params.Gender)
		clauses = append(clauses, fmt.Sprintf("gender = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", len(args), len(args), len(args)))
	}
	if params.AgentID != nil {
		args = append(args, *params.AgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id = $%d", len(args)))
	}
	if params.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if params.Archived != nil {
		args = append(args, *params.Archived)
		clauses = append(clauses, fmt.Sprintf("archived = $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, leadColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list leads: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

// Update patches lead attributes.
func (r *Repo) Update(ctx context.Context, params UpdateLeadParams) (Lead, error) {
	query := fmt.Sprintf(`
		UPDATE leads
		SET full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			country = COALESCE($5, country),
			gender = COALESCE($6, gender),
			active = COALESCE($7, active),
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		params.ID, params.FullName, params.Email, params.Phone,
		params.Country, params.Gender, params.Active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// Archive removes a lead from the selectable pool. Archiving is terminal;
// already-archived leads conflict.
func (r *Repo) Archive(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE leads SET archived = TRUE, updated_at = now() WHERE id = $1 AND NOT archived`, id)
	if err != nil {
		return fmt.Errorf("archive lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if checkErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("archive lead: %w", checkErr)
		}
		if exists {
			return apperr.Conflict("lead is already archived")
		}
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// AssignAgent sets or clears the lead's assigned agent.
func (r *Repo) AssignAgent(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`
		UPDATE leads SET assigned_agent_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING %s`, leadColumns)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("assign agent: %w", err)
	}
	return lead, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Category, &lead.FullName, &lead.Email, &lead.Phone,
		&lead.Country, &lead.Gender, &lead.Source,
		&lead.AssignedAgentID, &lead.LastAllocatedAt, &lead.Archived, &lead.Active,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
