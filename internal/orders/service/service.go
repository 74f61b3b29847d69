// Package service implements the orders workflow: reference validation,
// allocation, persistence and lifecycle transitions.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leadops_backend/internal/events"
	"leadops_backend/internal/orders/allocation"
	"leadops_backend/internal/orders/repository"
	"leadops_backend/internal/orders/transport"
	"leadops_backend/internal/refcache"
	"leadops_backend/internal/scheduler"
	"leadops_backend/platform/apperr"
	"leadops_backend/platform/logger"
)

// ReferenceChecker resolves networks, brokers and campaigns, typically
// through the Redis reference cache.
type ReferenceChecker interface {
	Network(ctx context.Context, id uuid.UUID) (refcache.Entry, error)
	Broker(ctx context.Context, id uuid.UUID) (refcache.Entry, error)
	Campaign(ctx context.Context, id uuid.UUID) (refcache.Entry, error)
}

// Service provides business logic for orders.
type Service struct {
	repo   repository.Repository
	engine *allocation.Engine
	refs   ReferenceChecker
	sched  scheduler.ReleaseScheduler
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new orders service. sched may be nil when Redis is not
// configured; cancellation then releases leads inline.
func New(repo repository.Repository, engine *allocation.Engine, refs ReferenceChecker, sched scheduler.ReleaseScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		refs:   refs,
		sched:  sched,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Create validates the request's references, runs the allocation engine and
// persists the outcome atomically. Orders are persisted even when partial
// or cancelled; only malformed input and agent shortfalls abort.
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, req transport.CreateOrderRequest) (transport.OrderResponse, error) {
	allocReq, campaignID, err := s.buildRequest(req)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	if err := s.checkReferences(ctx, allocReq, campaignID); err != nil {
		return transport.OrderResponse{}, err
	}

	result, err := s.engine.Allocate(ctx, allocReq)
	if err != nil {
		return transport.OrderResponse{}, mapAllocationError(err)
	}

	params := repository.CreateOrderParams{
		RequesterID:      requesterID,
		Requested:        allocReq.Counts,
		Delivered:        result.Delivered,
		Status:           string(result.Status),
		Country:          allocReq.Country,
		Gender:           string(allocReq.Gender),
		NetworkID:        allocReq.NetworkID,
		CampaignID:       &campaignID,
		AgentID:          allocReq.AgentID,
		BrokerIDs:        allocReq.BrokerIDs,
		Notes:            req.Notes,
		ShortfallReasons: result.ShortfallReasons,
		PlannedAt:        req.PlannedAt,
		AllocatedAt:      s.now(),
	}
	for i, lead := range result.Leads {
		params.Leads = append(params.Leads, repository.AllocatedLeadParams{
			LeadID:   lead.Lead.ID,
			Role:     lead.Role,
			Position: i,
		})
	}

	order, err := s.repo.CreateOrder(ctx, params)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	s.log.AllocationOutcome(order.ID.String(), order.Status, allocReq.Counts.Total(), result.Delivered.Total())
	s.bus.Publish(ctx, events.OrderAllocated{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   order.ID,
		Status:    order.Status,
		Requested: allocReq.Counts.Total(),
		Delivered: result.Delivered.Total(),
	})

	return toResponse(order), nil
}

// GetByID retrieves an order.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.OrderResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	return toResponse(order), nil
}

// List retrieves orders with pagination.
func (s *Service) List(ctx context.Context, req transport.ListOrdersRequest) (transport.OrderListResponse, error) {
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

	orders, total, err := s.repo.ListOrders(ctx, repository.ListOrdersParams{
		Status: req.Status,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return transport.OrderListResponse{}, err
	}

	resp := transport.OrderListResponse{
		Orders:   make([]transport.OrderResponse, 0, len(orders)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, toResponse(order))
	}
	return resp, nil
}

// Cancel flips the order to cancelled and schedules the release sweep that
// returns its leads to the pool. Without a scheduler the release runs inline.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (transport.OrderResponse, error) {
	order, err := s.repo.CancelOrder(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	if s.sched != nil {
		if err := s.sched.ScheduleOrderRelease(ctx, order.ID); err != nil {
			s.log.Warn("failed to schedule lead release, releasing inline", "orderId", order.ID, "error", err)
			if _, relErr := s.repo.ReleaseOrderLeads(ctx, order.ID); relErr != nil {
				return transport.OrderResponse{}, relErr
			}
		}
	} else {
		released, err := s.repo.ReleaseOrderLeads(ctx, order.ID)
		if err != nil {
			return transport.OrderResponse{}, err
		}
		s.log.ReleaseSweep(order.ID.String(), released)
	}

	s.bus.Publish(ctx, events.OrderCancelled{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   order.ID,
	})
	return toResponse(order), nil
}

// ReplaceLead swaps one delivered slot for a fresh lead. Every lead that
// ever occupied the slot is excluded, as are the order's other leads.
func (s *Service) ReplaceLead(ctx context.Context, orderID, leadID uuid.UUID) (transport.ReplaceLeadResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return transport.ReplaceLeadResponse{}, err
	}
	if order.Status == repository.StatusCancelled {
		return transport.ReplaceLeadResponse{}, apperr.Conflict("cannot replace leads on a cancelled order")
	}

	slot, err := s.repo.GetOrderLead(ctx, orderID, leadID)
	if err != nil {
		return transport.ReplaceLeadResponse{}, err
	}

	history, err := s.repo.SlotReplacementHistory(ctx, orderID, slot.Position)
	if err != nil {
		return transport.ReplaceLeadResponse{}, err
	}
	excludes := append([]uuid.UUID{}, history...)
	for _, delivered := range order.Leads {
		excludes = append(excludes, delivered.LeadID)
	}

	role := allocation.Role(slot.Role)
	allocReq := allocation.OrderRequest{
		Country:        order.Country,
		Gender:         allocation.Gender(order.Gender),
		NetworkID:      order.NetworkID,
		BrokerIDs:      order.BrokerIDs,
		AgentID:        order.AgentID,
		ExcludeLeadIDs: excludes,
	}
	allocReq.Counts.Add(role, 1)

	result, err := s.engine.Allocate(ctx, allocReq)
	if err != nil {
		return transport.ReplaceLeadResponse{}, mapAllocationError(err)
	}
	if len(result.Leads) == 0 {
		msg := "no eligible replacement lead available"
		if len(result.ShortfallReasons) > 0 {
			msg = result.ShortfallReasons[0]
		}
		return transport.ReplaceLeadResponse{}, apperr.Conflict(msg)
	}
	newLead := result.Leads[0].Lead

	if err := s.repo.ReplaceOrderLead(ctx, repository.ReplaceOrderLeadParams{
		OrderID:     orderID,
		Position:    slot.Position,
		OldLeadID:   leadID,
		NewLeadID:   newLead.ID,
		Role:        role,
		NetworkID:   order.NetworkID,
		BrokerIDs:   order.BrokerIDs,
		AllocatedAt: s.now(),
	}); err != nil {
		return transport.ReplaceLeadResponse{}, err
	}

	updated, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return transport.ReplaceLeadResponse{}, err
	}
	return transport.ReplaceLeadResponse{
		Order:        toResponse(updated),
		ReplacedLead: leadID,
		NewLead:      newLead.ID,
		Position:     slot.Position,
	}, nil
}

// buildRequest converts the HTTP payload into an engine request.
func (s *Service) buildRequest(req transport.CreateOrderRequest) (allocation.OrderRequest, uuid.UUID, error) {
	allocReq := allocation.OrderRequest{
		Counts: allocation.Counts{
			Conversion: req.Counts.Conversion,
			Filler:     req.Counts.Filler,
			Cold:       req.Counts.Cold,
		},
		Country: req.Country,
		Gender:  allocation.Gender(req.Gender),
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		return allocation.OrderRequest{}, uuid.Nil, apperr.Validation("invalid campaign ID")
	}
	allocReq.CampaignID = &campaignID

	if req.NetworkID != nil {
		networkID, err := uuid.Parse(*req.NetworkID)
		if err != nil {
			return allocation.OrderRequest{}, uuid.Nil, apperr.Validation("invalid network ID")
		}
		allocReq.NetworkID = &networkID
	}
	for _, raw := range req.BrokerIDs {
		brokerID, err := uuid.Parse(raw)
		if err != nil {
			return allocation.OrderRequest{}, uuid.Nil, apperr.Validation("invalid broker ID")
		}
		allocReq.BrokerIDs = append(allocReq.BrokerIDs, brokerID)
	}
	if req.AgentID != nil {
		agentID, err := uuid.Parse(*req.AgentID)
		if err != nil {
			return allocation.OrderRequest{}, uuid.Nil, apperr.Validation("invalid agent ID")
		}
		allocReq.AgentID = &agentID
	}
	for _, slot := range req.SlotAssignments {
		agentID, err := uuid.Parse(slot.AgentID)
		if err != nil {
			return allocation.OrderRequest{}, uuid.Nil, apperr.Validation("invalid slot agent ID")
		}
		allocReq.SlotAssignments = append(allocReq.SlotAssignments, allocation.SlotAssignment{
			Role:           allocation.Role(slot.Role),
			Index:          slot.Index,
			AgentID:        agentID,
			FallbackGender: allocation.Gender(slot.FallbackGender),
		})
	}
	return allocReq, campaignID, nil
}

// checkReferences verifies the campaign, network and brokers exist and are
// active before any allocation work happens.
func (s *Service) checkReferences(ctx context.Context, req allocation.OrderRequest, campaignID uuid.UUID) error {
	campaign, err := s.refs.Campaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if !campaign.Active {
		return apperr.Validation("campaign is not active")
	}

	if req.NetworkID != nil {
		network, err := s.refs.Network(ctx, *req.NetworkID)
		if err != nil {
			return err
		}
		if !network.Active {
			return apperr.Validation("client network is not active")
		}
	}
	for _, brokerID := range req.BrokerIDs {
		broker, err := s.refs.Broker(ctx, brokerID)
		if err != nil {
			return err
		}
		if !broker.Active {
			return apperr.Validation("client broker is not active")
		}
	}
	return nil
}

// mapAllocationError translates engine errors into API errors. Agent
// shortfalls are conflicts with structured details so the client can offer
// a fallback gender and retry.
func mapAllocationError(err error) error {
	var inputErr *allocation.InputError
	if errors.As(err, &inputErr) {
		return apperr.Validation(inputErr.Error())
	}
	var shortfallErr *allocation.AgentShortfallError
	if errors.As(err, &shortfallErr) {
		return apperr.Conflict("insufficient agent-assigned leads and no fallback gender provided").
			WithDetails(shortfallErr.Shortfalls)
	}
	return err
}

func toResponse(order repository.Order) transport.OrderResponse {
	resp := transport.OrderResponse{
		ID:          order.ID,
		RequesterID: order.RequesterID,
		Requested: transport.CountsPayload{
			Conversion: order.Requested.Conversion,
			Filler:     order.Requested.Filler,
			Cold:       order.Requested.Cold,
		},
		Delivered: transport.CountsPayload{
			Conversion: order.Delivered.Conversion,
			Filler:     order.Delivered.Filler,
			Cold:       order.Delivered.Cold,
		},
		Status:           order.Status,
		Country:          order.Country,
		Gender:           order.Gender,
		NetworkID:        order.NetworkID,
		CampaignID:       order.CampaignID,
		AgentID:          order.AgentID,
		BrokerIDs:        order.BrokerIDs,
		Notes:            order.Notes,
		ShortfallReasons: order.ShortfallReasons,
		PlannedAt:        order.PlannedAt,
		CancelledAt:      order.CancelledAt,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
	for _, lead := range order.Leads {
		resp.Leads = append(resp.Leads, transport.OrderLeadResponse{
			LeadID:   lead.LeadID,
			Role:     lead.Role,
			Position: lead.Position,
		})
	}
	return resp
}
