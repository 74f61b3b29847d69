package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadops_backend/internal/orders/allocation"
	"leadops_backend/platform/apperr"
)

const orderNotFoundMessage = "order not found"

// CreateOrder persists an order and all its lead-side bookkeeping in one
// transaction: the order row, broker links, delivered slots, allocation
// timestamps on primary leads, and network/broker assignment history.
func (r *Repo) CreateOrder(ctx context.Context, params CreateOrderParams) (Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("create order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order := Order{
		RequesterID:      params.RequesterID,
		Requested:        params.Requested,
		Delivered:        params.Delivered,
		Status:           params.Status,
		Country:          params.Country,
		Gender:           params.Gender,
		NetworkID:        params.NetworkID,
		CampaignID:       params.CampaignID,
		AgentID:          params.AgentID,
		BrokerIDs:        params.BrokerIDs,
		Notes:            params.Notes,
		ShortfallReasons: params.ShortfallReasons,
		PlannedAt:        params.PlannedAt,
	}

	insertOrder := `
		INSERT INTO orders (
			requester_id,
			requested_conversion, requested_filler, requested_cold,
			delivered_conversion, delivered_filler, delivered_cold,
			status, country_filter, gender_filter,
			network_id, campaign_id, agent_id,
			notes, shortfall_reasons, planned_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertOrder,
		params.RequesterID,
		params.Requested.Conversion, params.Requested.Filler, params.Requested.Cold,
		params.Delivered.Conversion, params.Delivered.Filler, params.Delivered.Cold,
		params.Status, params.Country, params.Gender,
		params.NetworkID, params.CampaignID, params.AgentID,
		params.Notes, params.ShortfallReasons, params.PlannedAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return Order{}, fmt.Errorf("create order: insert: %w", err)
	}

	for _, brokerID := range params.BrokerIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_brokers (order_id, broker_id) VALUES ($1, $2)`,
			order.ID, brokerID,
		); err != nil {
			return Order{}, fmt.Errorf("create order: broker link: %w", err)
		}
	}

	var primaryIDs []uuid.UUID
	for _, lead := range params.Leads {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_leads (order_id, lead_id, role, position) VALUES ($1, $2, $3, $4)`,
			order.ID, lead.LeadID, string(lead.Role), lead.Position,
		); err != nil {
			return Order{}, fmt.Errorf("create order: lead slot: %w", err)
		}
		order.Leads = append(order.Leads, OrderLead{
			LeadID:   lead.LeadID,
			Role:     string(lead.Role),
			Position: lead.Position,
		})
		if lead.Role.Category() == allocation.CategoryPrimary {
			primaryIDs = append(primaryIDs, lead.LeadID)
		}

		if params.NetworkID != nil {
			if _, err := tx.Exec(ctx,
				`INSERT INTO lead_network_assignments (lead_id, network_id, order_id, assigned_at)
				 VALUES ($1, $2, $3, $4)`,
				lead.LeadID, *params.NetworkID, order.ID, params.AllocatedAt,
			); err != nil {
				return Order{}, fmt.Errorf("create order: network assignment: %w", err)
			}
		}
		for _, brokerID := range params.BrokerIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO lead_broker_assignments (lead_id, broker_id, order_id, assigned_at)
				 VALUES ($1, $2, $3, $4)`,
				lead.LeadID, brokerID, order.ID, params.AllocatedAt,
			); err != nil {
				return Order{}, fmt.Errorf("create order: broker assignment: %w", err)
			}
		}
	}

	if len(primaryIDs) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE leads SET last_allocated_at = $1, updated_at = now() WHERE id = ANY($2)`,
			params.AllocatedAt, primaryIDs,
		); err != nil {
			return Order{}, fmt.Errorf("create order: stamp allocation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("create order: commit: %w", err)
	}
	return order, nil
}

// GetOrderByID fetches one order with its brokers and delivered slots.
func (r *Repo) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	query := `
		SELECT id, requester_id,
			requested_conversion, requested_filler, requested_cold,
			delivered_conversion, delivered_filler, delivered_cold,
			status, country_filter, gender_filter,
			network_id, campaign_id, agent_id,
			notes, shortfall_reasons, planned_at, cancelled_at, created_at, updated_at
		FROM orders
		WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := r.loadOrderDetails(ctx, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListOrders lists orders newest first with optional filters and the total count.
func (r *Repo) ListOrders(ctx context.Context, params ListOrdersParams) ([]Order, int, error) {
	where := "TRUE"
	args := []interface{}{}
	if params.Status != "" {
		args = append(args, params.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if params.RequesterID != nil {
		args = append(args, *params.RequesterID)
		where += fmt.Sprintf(" AND requester_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT id, requester_id,
			requested_conversion, requested_filler, requested_cold,
			delivered_conversion, delivered_filler, delivered_cold,
			status, country_filter, gender_filter,
			network_id, campaign_id, agent_id,
			notes, shortfall_reasons, planned_at, cancelled_at, created_at, updated_at
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// CancelOrder flips an order to cancelled. Cancelling twice is a conflict.
func (r *Repo) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	query := `
		UPDATE orders
		SET status = $2, cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING id, requester_id,
			requested_conversion, requested_filler, requested_cold,
			delivered_conversion, delivered_filler, delivered_cold,
			status, country_filter, gender_filter,
			network_id, campaign_id, agent_id,
			notes, shortfall_reasons, planned_at, cancelled_at, created_at, updated_at`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, StatusCancelled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if checkErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id,
			).Scan(&exists); checkErr != nil {
				return Order{}, fmt.Errorf("cancel order: %w", checkErr)
			}
			if exists {
				return Order{}, apperr.Conflict("order is already cancelled")
			}
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, fmt.Errorf("cancel order: %w", err)
	}
	return order, nil
}

// ReleaseOrderLeads removes the cancelled order's assignment history and
// clears allocation timestamps so its leads become allocatable again.
func (r *Repo) ReleaseOrderLeads(ctx context.Context, orderID uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("release leads: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx, `
		UPDATE leads
		SET last_allocated_at = NULL, updated_at = now()
		WHERE id IN (SELECT lead_id FROM order_leads WHERE order_id = $1)`,
		orderID,
	)
	if err != nil {
		return 0, fmt.Errorf("release leads: clear timestamps: %w", err)
	}
	released := int(result.RowsAffected())

	if _, err := tx.Exec(ctx,
		`DELETE FROM lead_network_assignments WHERE order_id = $1`, orderID,
	); err != nil {
		return 0, fmt.Errorf("release leads: network assignments: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM lead_broker_assignments WHERE order_id = $1`, orderID,
	); err != nil {
		return 0, fmt.Errorf("release leads: broker assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("release leads: commit: %w", err)
	}
	return released, nil
}

// GetOrderLead returns the slot a lead occupies in an order.
func (r *Repo) GetOrderLead(ctx context.Context, orderID, leadID uuid.UUID) (OrderLead, error) {
	query := `SELECT lead_id, role, position FROM order_leads WHERE order_id = $1 AND lead_id = $2`

	var slot OrderLead
	if err := r.pool.QueryRow(ctx, query, orderID, leadID).Scan(&slot.LeadID, &slot.Role, &slot.Position); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderLead{}, apperr.NotFound("lead is not part of this order")
		}
		return OrderLead{}, fmt.Errorf("get order lead: %w", err)
	}
	return slot, nil
}

// ReplaceOrderLead swaps a delivered slot to a new lead: the outgoing lead
// is archived into the slot's replacement history and released from this
// order's assignments, the incoming lead is bound in its place.
func (r *Repo) ReplaceOrderLead(ctx context.Context, params ReplaceOrderLeadParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace lead: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_lead_replacements (order_id, position, lead_id) VALUES ($1, $2, $3)`,
		params.OrderID, params.Position, params.OldLeadID,
	); err != nil {
		return fmt.Errorf("replace lead: history: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE order_leads SET lead_id = $4 WHERE order_id = $1 AND position = $2 AND lead_id = $3`,
		params.OrderID, params.Position, params.OldLeadID, params.NewLeadID,
	)
	if err != nil {
		return fmt.Errorf("replace lead: swap slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("order slot changed concurrently")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM lead_network_assignments WHERE order_id = $1 AND lead_id = $2`,
		params.OrderID, params.OldLeadID,
	); err != nil {
		return fmt.Errorf("replace lead: release network assignment: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM lead_broker_assignments WHERE order_id = $1 AND lead_id = $2`,
		params.OrderID, params.OldLeadID,
	); err != nil {
		return fmt.Errorf("replace lead: release broker assignments: %w", err)
	}

	if params.NetworkID != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lead_network_assignments (lead_id, network_id, order_id, assigned_at)
			 VALUES ($1, $2, $3, $4)`,
			params.NewLeadID, *params.NetworkID, params.OrderID, params.AllocatedAt,
		); err != nil {
			return fmt.Errorf("replace lead: bind network: %w", err)
		}
	}
	for _, brokerID := range params.BrokerIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lead_broker_assignments (lead_id, broker_id, order_id, assigned_at)
			 VALUES ($1, $2, $3, $4)`,
			params.NewLeadID, brokerID, params.OrderID, params.AllocatedAt,
		); err != nil {
			return fmt.Errorf("replace lead: bind broker: %w", err)
		}
	}

	if params.Role.Category() == allocation.CategoryPrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE leads SET last_allocated_at = $2, updated_at = now() WHERE id = $1`,
			params.NewLeadID, params.AllocatedAt,
		); err != nil {
			return fmt.Errorf("replace lead: stamp allocation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace lead: commit: %w", err)
	}
	return nil
}

// SlotReplacementHistory lists every lead that ever occupied the slot,
// including its current occupant.
func (r *Repo) SlotReplacementHistory(ctx context.Context, orderID uuid.UUID, position int) ([]uuid.UUID, error) {
	query := `
		SELECT lead_id FROM order_lead_replacements WHERE order_id = $1 AND position = $2
		UNION
		SELECT lead_id FROM order_leads WHERE order_id = $1 AND position = $2`

	rows, err := r.pool.Query(ctx, query, orderID, position)
	if err != nil {
		return nil, fmt.Errorf("slot history: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slot history: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("slot history: %w", err)
	}
	return ids, nil
}

// loadOrderDetails fills in broker links and delivered slots.
func (r *Repo) loadOrderDetails(ctx context.Context, order *Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT broker_id FROM order_brokers WHERE order_id = $1`, order.ID)
	if err != nil {
		return fmt.Errorf("load order brokers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan order broker: %w", err)
		}
		order.BrokerIDs = append(order.BrokerIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load order brokers: %w", err)
	}

	leadRows, err := r.pool.Query(ctx,
		`SELECT lead_id, role, position FROM order_leads WHERE order_id = $1 ORDER BY position`, order.ID)
	if err != nil {
		return fmt.Errorf("load order leads: %w", err)
	}
	defer leadRows.Close()
	for leadRows.Next() {
		var slot OrderLead
		if err := leadRows.Scan(&slot.LeadID, &slot.Role, &slot.Position); err != nil {
			return fmt.Errorf("scan order lead: %w", err)
		}
		order.Leads = append(order.Leads, slot)
	}
	if err := leadRows.Err(); err != nil {
		return fmt.Errorf("load order leads: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (Order, error) {
	var order Order
	err := row.Scan(
		&order.ID, &order.RequesterID,
		&order.Requested.Conversion, &order.Requested.Filler, &order.Requested.Cold,
		&order.Delivered.Conversion, &order.Delivered.Filler, &order.Delivered.Cold,
		&order.Status, &order.Country, &order.Gender,
		&order.NetworkID, &order.CampaignID, &order.AgentID,
		&order.Notes, &order.ShortfallReasons, &order.PlannedAt, &order.CancelledAt,
		&order.CreatedAt, &order.UpdatedAt,
	)
	return order, err
}
