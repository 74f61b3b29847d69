// Package transport defines the HTTP request and response shapes of the
// leads context.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest brings a new lead into the pool.
type CreateLeadRequest struct {
	Category string `json:"category" validate:"required,oneof=primary cold"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"required,min=5,max=32"`
	Country  string `json:"country" validate:"required,max=64"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female unspecified"`
	Source   string `json:"source" validate:"omitempty,max=100"`
}

// UpdateLeadRequest patches lead attributes.
type UpdateLeadRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,max=200"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=5,max=32"`
	Country  *string `json:"country" validate:"omitempty,max=64"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female unspecified"`
	Active   *bool   `json:"active"`
}

// AssignAgentRequest sets or clears the lead's agent.
type AssignAgentRequest struct {
	AgentID *string `json:"agentId" validate:"omitempty,uuid"`
}

// ListLeadsRequest filters the lead listing.
type ListLeadsRequest struct {
	Category   string `form:"category" validate:"omitempty,oneof=primary cold"`
	Country    string `form:"country"`
	Gender     string `form:"gender" validate:"omitempty,oneof=male female unspecified"`
	Search     string `form:"search" validate:"omitempty,max=200"`
	AgentID    string `form:"agentId" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	Archived   *bool  `form:"archived"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// LeadResponse is the API view of a lead.
type LeadResponse struct {
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

// LeadListResponse is a paginated lead listing.
type LeadListResponse struct {
	Leads    []LeadResponse `json:"leads"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}
