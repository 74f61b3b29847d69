// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadops_backend/platform/events"
	"leadops_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pool.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Category string    `json:"category"`
	Country  string    `json:"country"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadArchived is published when a lead is removed from the selectable pool.
type LeadArchived struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadArchived) EventName() string { return "leads.archived" }

// =============================================================================
// Orders Domain Events
// =============================================================================

// OrderAllocated is published after an order allocation has been persisted.
type OrderAllocated struct {
	BaseEvent
	OrderID   uuid.UUID `json:"orderId"`
	Status    string    `json:"status"`
	Requested int       `json:"requested"`
	Delivered int       `json:"delivered"`
}

func (e OrderAllocated) EventName() string { return "orders.allocated" }

// OrderCancelled is published when an order is cancelled and its leads are
// due for release.
type OrderCancelled struct {
	BaseEvent
	OrderID uuid.UUID `json:"orderId"`
}

func (e OrderCancelled) EventName() string { return "orders.cancelled" }

// LeadsReleased is published when a cancelled order's leads have been
// returned to the pool.
type LeadsReleased struct {
	BaseEvent
	OrderID  uuid.UUID `json:"orderId"`
	Released int       `json:"released"`
}

func (e LeadsReleased) EventName() string { return "orders.leads_released" }
