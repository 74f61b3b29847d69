// Package transport defines the HTTP request and response shapes of the
// orders context.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CountsPayload carries per-role lead counts.
type CountsPayload struct {
	Conversion int `json:"conversion" validate:"min=0"`
	Filler     int `json:"filler" validate:"min=0"`
	Cold       int `json:"cold" validate:"min=0"`
}

// SlotAssignmentPayload pins one slot of a role to an agent.
type SlotAssignmentPayload struct {
	Role           string `json:"role" validate:"required,oneof=conversion filler"`
	Index          int    `json:"index" validate:"min=0"`
	AgentID        string `json:"agentId" validate:"required,uuid"`
	FallbackGender string `json:"fallbackGender" validate:"omitempty,oneof=male female unspecified"`
}

// CreateOrderRequest creates and allocates an order in one call.
type CreateOrderRequest struct {
	Counts          CountsPayload           `json:"counts" validate:"required"`
	Country         string                  `json:"country" validate:"omitempty,max=64"`
	Gender          string                  `json:"gender" validate:"omitempty,oneof=male female unspecified"`
	NetworkID       *string                 `json:"networkId" validate:"omitempty,uuid"`
	BrokerIDs       []string                `json:"brokerIds" validate:"omitempty,dive,uuid"`
	CampaignID      string                  `json:"campaignId" validate:"required,uuid"`
	AgentID         *string                 `json:"agentId" validate:"omitempty,uuid"`
	SlotAssignments []SlotAssignmentPayload `json:"slotAssignments" validate:"omitempty,dive"`
	Notes           string                  `json:"notes" validate:"omitempty,max=2000"`
	PlannedAt       *time.Time              `json:"plannedAt"`
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=fulfilled partial cancelled"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// OrderLeadResponse is one delivered slot.
type OrderLeadResponse struct {
	LeadID   uuid.UUID `json:"leadId"`
	Role     string    `json:"role"`
	Position int       `json:"position"`
}

// OrderResponse is the API view of an order.
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	RequesterID      uuid.UUID           `json:"requesterId"`
	Requested        CountsPayload       `json:"requested"`
	Delivered        CountsPayload       `json:"delivered"`
	Status           string              `json:"status"`
	Country          string              `json:"country,omitempty"`
	Gender           string              `json:"gender,omitempty"`
	NetworkID        *uuid.UUID          `json:"networkId,omitempty"`
	CampaignID       *uuid.UUID          `json:"campaignId,omitempty"`
	AgentID          *uuid.UUID          `json:"agentId,omitempty"`
	BrokerIDs        []uuid.UUID         `json:"brokerIds,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	ShortfallReasons []string            `json:"shortfallReasons,omitempty"`
	PlannedAt        *time.Time          `json:"plannedAt,omitempty"`
	CancelledAt      *time.Time          `json:"cancelledAt,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	Leads            []OrderLeadResponse `json:"leads,omitempty"`
}

// OrderListResponse is a paginated order listing.
type OrderListResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// ReplaceLeadResponse reports the outcome of a slot swap.
type ReplaceLeadResponse struct {
	Order        OrderResponse `json:"order"`
	ReplacedLead uuid.UUID     `json:"replacedLead"`
	NewLead      uuid.UUID     `json:"newLead"`
	Position     int           `json:"position"`
}
