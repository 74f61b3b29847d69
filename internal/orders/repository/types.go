package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadops_backend/internal/orders/allocation"
)

// Order statuses as persisted. Creation stamps the allocation outcome;
// cancellation is the only later transition.
const (
	StatusFulfilled = string(allocation.StatusFulfilled)
	StatusPartial   = string(allocation.StatusPartial)
	StatusCancelled = string(allocation.StatusCancelled)
)

// Order is a persisted allocation order.
type Order struct {
	ID               uuid.UUID         `json:"id"`
	RequesterID      uuid.UUID         `json:"requesterId"`
	Requested        allocation.Counts `json:"requested"`
	Delivered        allocation.Counts `json:"delivered"`
	Status           string            `json:"status"`
	Country          string            `json:"country,omitempty"`
	Gender           string            `json:"gender,omitempty"`
	NetworkID        *uuid.UUID        `json:"networkId,omitempty"`
	CampaignID       *uuid.UUID        `json:"campaignId,omitempty"`
	AgentID          *uuid.UUID        `json:"agentId,omitempty"`
	BrokerIDs        []uuid.UUID       `json:"brokerIds,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	ShortfallReasons []string          `json:"shortfallReasons,omitempty"`
	PlannedAt        *time.Time        `json:"plannedAt,omitempty"`
	CancelledAt      *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Leads            []OrderLead       `json:"leads,omitempty"`
}

// OrderLead is one delivered slot of an order.
type OrderLead struct {
	LeadID   uuid.UUID `json:"leadId"`
	Role     string    `json:"role"`
	Position int       `json:"position"`
}

// AllocatedLeadParams describes one lead to bind during order creation.
type AllocatedLeadParams struct {
	LeadID   uuid.UUID
	Role     allocation.Role
	Position int
}

// CreateOrderParams carries everything persisted atomically at creation:
// the order row, its broker links, the delivered slots, plus the lead-side
// bookkeeping (allocation timestamps and assignment history).
type CreateOrderParams struct {
	RequesterID      uuid.UUID
	Requested        allocation.Counts
	Delivered        allocation.Counts
	Status           string
	Country          string
	Gender           string
	NetworkID        *uuid.UUID
	CampaignID       *uuid.UUID
	AgentID          *uuid.UUID
	BrokerIDs        []uuid.UUID
	Notes            string
	ShortfallReasons []string
	PlannedAt        *time.Time
	Leads            []AllocatedLeadParams
	AllocatedAt      time.Time
}

// ReplaceOrderLeadParams swaps one delivered slot for a fresh lead.
type ReplaceOrderLeadParams struct {
	OrderID     uuid.UUID
	Position    int
	OldLeadID   uuid.UUID
	NewLeadID   uuid.UUID
	Role        allocation.Role
	NetworkID   *uuid.UUID
	BrokerIDs   []uuid.UUID
	AllocatedAt time.Time
}

// ListOrdersParams filters the order listing.
type ListOrdersParams struct {
	Status      string
	RequesterID *uuid.UUID
	Limit       int
	Offset      int
}

// ReferenceEntry is a network, broker or campaign row as seen by callers.
type ReferenceEntry struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// Repository is the persistence surface of the orders context. It also
// implements allocation.Store so the engine reads through the same layer.
type Repository interface {
	allocation.Store

	CreateOrder(ctx context.Context, params CreateOrderParams) (Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrders(ctx context.Context, params ListOrdersParams) ([]Order, int, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (Order, error)
	// ReleaseOrderLeads undoes the lead-side bookkeeping of a cancelled
	// order: assignment history rows are removed and allocation timestamps
	// cleared. Returns the number of leads released.
	ReleaseOrderLeads(ctx context.Context, orderID uuid.UUID) (int, error)
	GetOrderLead(ctx context.Context, orderID, leadID uuid.UUID) (OrderLead, error)
	ReplaceOrderLead(ctx context.Context, params ReplaceOrderLeadParams) error
	// SlotReplacementHistory returns every lead that ever occupied the slot,
	// including the current one.
	SlotReplacementHistory(ctx context.Context, orderID uuid.UUID, position int) ([]uuid.UUID, error)

	GetNetwork(ctx context.Context, id uuid.UUID) (ReferenceEntry, error)
	GetBroker(ctx context.Context, id uuid.UUID) (ReferenceEntry, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (ReferenceEntry, error)
	ListNetworks(ctx context.Context) ([]ReferenceEntry, error)
	ListBrokers(ctx context.Context) ([]ReferenceEntry, error)
	ListCampaigns(ctx context.Context) ([]ReferenceEntry, error)
}
