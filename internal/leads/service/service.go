// Package service implements the leads workflow: intake with phone
// normalization, listing, updates, archival and agent assignment.
package service

import (
	"context"

	"github.com/google/uuid"

	"leadops_backend/internal/events"
	"leadops_backend/internal/leads/repository"
	"leadops_backend/internal/leads/transport"
	"leadops_backend/platform/apperr"
	"leadops_backend/platform/logger"
	"leadops_backend/platform/phone"
)

// Service provides business logic for leads.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Create takes in a new lead. The phone number is normalized to E.164 when
// it parses; otherwise the raw input is stored and the allocation engine
// falls back to digit extraction.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Category: req.Category,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    phone.NormalizeE164(req.Phone),
		Country:  req.Country,
		Gender:   req.Gender,
		Source:   req.Source,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Category:  lead.Category,
		Country:   lead.Country,
	})
	return toResponse(lead), nil
}

// GetByID retrieves a lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// List retrieves leads with filters and pagination.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := repository.ListLeadsParams{
		Category:   req.Category,
		Country:    req.Country,
		Gender:     req.Gender,
		Search:     req.Search,
		Unassigned: req.Unassigned,
		Archived:   req.Archived,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if req.AgentID != "" {
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid agent ID")
		}
		params.AgentID = &agentID
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	resp := transport.LeadListResponse{
		Leads:    make([]transport.LeadResponse, 0, len(leads)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, lead := range leads {
		resp.Leads = append(resp.Leads, toResponse(lead))
	}
	return resp, nil
}

// Update patches lead attributes, re-normalizing the phone when it changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	params := repository.UpdateLeadParams{
		ID:       id,
		FullName: req.FullName,
		Email:    req.Email,
		Country:  req.Country,
		Gender:   req.Gender,
		Active:   req.Active,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	lead, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// Archive removes a lead from the selectable pool permanently.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.LeadArchived{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
	})
	return nil
}

// AssignAgent sets or clears the lead's assigned agent.
func (s *Service) AssignAgent(ctx context.Context, id uuid.UUID, req transport.AssignAgentRequest) (transport.LeadResponse, error) {
	var agentID *uuid.UUID
	if req.AgentID != nil {
		parsed, err := uuid.Parse(*req.AgentID)
		if err != nil {
			return transport.LeadResponse{}, apperr.Validation("invalid agent ID")
		}
		agentID = &parsed
	}

	lead, err := s.repo.AssignAgent(ctx, id, agentID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		Category:        lead.Category,
		FullName:        lead.FullName,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Country:         lead.Country,
		Gender:          lead.Gender,
		Source:          lead.Source,
		AssignedAgentID: lead.AssignedAgentID,
		LastAllocatedAt: lead.LastAllocatedAt,
		Archived:        lead.Archived,
		Active:          lead.Active,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
