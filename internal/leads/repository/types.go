package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead is a pool lead as persisted.
type Lead struct {
	ID              uuid.UUID  `json:"id"`
	Category        string     `json:"category"`
	FullName        string     `json:"fullName"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone"`
	Country         string     `json:"country"`
	Gender          string     `json:"gender,omitempty"`
	Source          string     `json:"source,omitempty"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	LastAllocatedAt *time.Time `json:"lastAllocatedAt,omitempty"`
	Archived        bool       `json:"archived"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CreateLeadParams carries a new lead into the pool.
type CreateLeadParams struct {
	Category string
	FullName string
	Email    string
	Phone    string
	Country  string
	Gender   string
	Source   string
}

// UpdateLeadParams patches lead attributes. Nil fields are left unchanged.
type UpdateLeadParams struct {
	ID       uuid.UUID
	FullName *string
	Email    *string
	Phone    *string
	Country  *string
	Gender   *string
	Active   *bool
}

// ListLeadsParams filters the lead listing.
type ListLeadsParams struct {
	Category   string
	Country    string
	Gender     string
	Search     string
	AgentID    *uuid.UUID
	Unassigned bool
	Archived   *bool
	Limit      int
	Offset     int
}

// Repository is the persistence surface of the leads context.
type Repository interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error)
	Update(ctx context.Context, params UpdateLeadParams) (Lead, error)
	Archive(ctx context.Context, id uuid.UUID) error
	AssignAgent(ctx context.Context, id uuid.UUID, agentID *uuid.UUID) (Lead, error)
}
