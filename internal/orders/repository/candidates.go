package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadops_backend/internal/orders/allocation"
)

// Repo implements the orders repository over a pgx pool.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// candidateWhere renders the filters of a CandidateQuery into SQL clauses.
// Archived and inactive leads are always excluded per the Store contract.
func candidateWhere(q allocation.CandidateQuery) (string, []interface{}) {
	clauses := []string{"category = $1", "NOT archived", "active"}
	args := []interface{}{string(q.Category)}

	if q.Country != "" {
		args = append(args, q.Country)
		clauses = append(clauses, fmt.Sprintf("country ILIKE $%d", len(args)))
	}
	if q.Gender != allocation.GenderAny {
		args = append(args, string(q.Gender))
		clauses = append(clauses, fmt.Sprintf("gender = $%d", len(args)))
	}
	if q.AgentID != nil {
		args = append(args, *q.AgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id = $%d", len(args)))
	}
	if q.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if len(q.ExcludeIDs) > 0 {
		args = append(args, q.ExcludeIDs)
		clauses = append(clauses, fmt.Sprintf("NOT (id = ANY($%d))", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// FindCandidates returns selectable leads matching the query, oldest first,
// with their order assignment history attached.
func (r *Repo) FindCandidates(ctx context.Context, q allocation.CandidateQuery) ([]allocation.Lead, error) {
	where, args := candidateWhere(q)
	query := fmt.Sprintf(`
		SELECT id, category, country, gender, phone, assigned_agent_id, last_allocated_at, archived, active
		FROM leads
		WHERE %s
		ORDER BY created_at ASC`, where)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	var leads []allocation.Lead
	for rows.Next() {
		var lead allocation.Lead
		var category, gender string
		if err := rows.Scan(
			&lead.ID, &category, &lead.Country, &gender, &lead.Phone,
			&lead.AssignedAgentID, &lead.LastAllocatedAt, &lead.Archived, &lead.Active,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		lead.Category = allocation.Category(category)
		lead.Gender = allocation.Gender(gender)
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	if err := r.attachAssignments(ctx, leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// CountMatching counts selectable leads matching the query.
func (r *Repo) CountMatching(ctx context.Context, q allocation.CandidateQuery) (int, error) {
	where, args := candidateWhere(q)
	query := "SELECT COUNT(*) FROM leads WHERE " + where

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return count, nil
}

// RecentlyAllocatedPhones returns the subset of phones carried by any
// primary lead allocated after the given instant.
func (r *Repo) RecentlyAllocatedPhones(ctx context.Context, phones []string, since time.Time) (map[string]struct{}, error) {
	if len(phones) == 0 {
		return map[string]struct{}{}, nil
	}
	query := `
		SELECT DISTINCT phone
		FROM leads
		WHERE phone = ANY($1) AND category = $2 AND last_allocated_at > $3`

	rows, err := r.pool.Query(ctx, query, phones, string(allocation.CategoryPrimary), since)
	if err != nil {
		return nil, fmt.Errorf("recently allocated phones: %w", err)
	}
	defer rows.Close()

	hot := make(map[string]struct{})
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		hot[phone] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recently allocated phones: %w", err)
	}
	return hot, nil
}

// attachAssignments loads network and broker assignment history for the
// leads, joining the owning order's status so cancelled-order assignments
// can be recognized downstream.
func (r *Repo) attachAssignments(ctx context.Context, leads []allocation.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(leads))
	index := make(map[uuid.UUID]int, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
		index[lead.ID] = i
	}

	networkQuery := `
		SELECT a.lead_id, a.network_id, a.order_id, o.status = 'cancelled', a.assigned_at
		FROM lead_network_assignments a
		JOIN orders o ON o.id = a.order_id
		WHERE a.lead_id = ANY($1)`
	rows, err := r.pool.Query(ctx, networkQuery, ids)
	if err != nil {
		return fmt.Errorf("load network assignments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var leadID uuid.UUID
		var a allocation.NetworkAssignment
		if err := rows.Scan(&leadID, &a.NetworkID, &a.OrderID, &a.OrderCancelled, &a.AssignedAt); err != nil {
			return fmt.Errorf("scan network assignment: %w", err)
		}
		i := index[leadID]
		leads[i].NetworkAssignments = append(leads[i].NetworkAssignments, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load network assignments: %w", err)
	}

	brokerQuery := `
		SELECT a.lead_id, a.broker_id, a.order_id, o.status = 'cancelled', a.assigned_at
		FROM lead_broker_assignments a
		JOIN orders o ON o.id = a.order_id
		WHERE a.lead_id = ANY($1)`
	brows, err := r.pool.Query(ctx, brokerQuery, ids)
	if err != nil {
		return fmt.Errorf("load broker assignments: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var leadID uuid.UUID
		var a allocation.BrokerAssignment
		if err := brows.Scan(&leadID, &a.BrokerID, &a.OrderID, &a.OrderCancelled, &a.AssignedAt); err != nil {
			return fmt.Errorf("scan broker assignment: %w", err)
		}
		i := index[leadID]
		leads[i].BrokerAssignments = append(leads[i].BrokerAssignments, a)
	}
	if err := brows.Err(); err != nil {
		return fmt.Errorf("load broker assignments: %w", err)
	}
	return nil
}
