package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadops_backend/platform/logger"
)

// Defaults used when Config leaves a knob zero.
const (
	DefaultCooldownWindow     = 240 * time.Hour
	DefaultFullFetchThreshold = 5000
)

// Config tunes an Engine. Zero values fall back to the defaults above;
// Now is overridable for tests.
type Config struct {
	CooldownWindow     time.Duration
	FullFetchThreshold int
	Now                func() time.Time
}

// Engine selects leads for orders. It performs no writes: the caller owns
// persisting the result and stamping allocation times.
type Engine struct {
	store Store
	log   *logger.Logger
	gath  *gatherer
	diag  *diagnoser
}

// New constructs an Engine over the given store.
func New(store Store, log *logger.Logger, cfg Config) *Engine {
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = DefaultCooldownWindow
	}
	if cfg.FullFetchThreshold <= 0 {
		cfg.FullFetchThreshold = DefaultFullFetchThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store: store,
		log:   log,
		gath: &gatherer{
			store:              store,
			now:                cfg.Now,
			cooldownWindow:     cfg.CooldownWindow,
			fullFetchThreshold: cfg.FullFetchThreshold,
		},
		diag: &diagnoser{store: store},
	}
}

// Allocate fills the request role by role: conversion, then filler, then
// cold. Leads and phone numbers delivered for an earlier role are excluded
// from later ones. On an agent shortfall the typed error is returned and
// the result must be discarded; nothing has been persisted either way.
func (e *Engine) Allocate(ctx context.Context, req OrderRequest) (AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return AllocationResult{}, err
	}

	excl := NewExclusionSet(req.NetworkID, req.BrokerIDs)
	for _, id := range req.ExcludeLeadIDs {
		excl.ExcludeEverywhere(id)
	}

	var (
		result     AllocationResult
		shortfalls []AgentShortfall
	)

	for _, role := range Roles {
		n := req.Counts.Of(role)
		if n == 0 {
			continue
		}

		var picked []Lead
		slotCount := 0
		for _, group := range groupSlots(req.SlotAssignments, role) {
			slotCount += len(group.slots)
			leads, short, err := e.fillSlotGroup(ctx, role, group, req, excl)
			if err != nil {
				return AllocationResult{}, err
			}
			shortfalls = append(shortfalls, short...)
			picked = append(picked, leads...)
			e.claim(excl, leads)
		}

		if general := n - slotCount; general > 0 {
			leads, short, err := e.fillGeneral(ctx, role, general, req, excl)
			if err != nil {
				return AllocationResult{}, err
			}
			shortfalls = append(shortfalls, short...)
			picked = append(picked, leads...)
			e.claim(excl, leads)
		}

		for _, lead := range picked {
			result.Leads = append(result.Leads, AllocatedLead{Lead: lead, Role: role})
		}
		result.Delivered.Add(role, len(picked))
	}

	if len(shortfalls) > 0 {
		return AllocationResult{}, &AgentShortfallError{Shortfalls: shortfalls}
	}

	result.Status = ClassifyCounts(req.Counts, result.Delivered)
	if result.Status != StatusFulfilled {
		for _, role := range Roles {
			requested := req.Counts.Of(role)
			delivered := result.Delivered.Of(role)
			if delivered >= requested {
				continue
			}
			reason, err := e.diag.explain(ctx, role, requested, delivered, req)
			if err != nil {
				return AllocationResult{}, err
			}
			result.ShortfallReasons = append(result.ShortfallReasons, reason)
		}
	}

	if e.log != nil {
		e.log.Debug("allocation completed",
			"status", string(result.Status),
			"requested", req.Counts.Total(),
			"delivered", result.Delivered.Total(),
		)
	}
	return result, nil
}

// fillSlotGroup serves agent-pinned slots. Slot picks are explicit manual
// targeting and bypass the phone-pattern distribution. With fallback
// disabled and not enough agent-owned leads, nothing is taken and a
// shortfall is recorded per unfillable slot.
func (e *Engine) fillSlotGroup(ctx context.Context, role Role, group slotGroup, req OrderRequest, excl *ExclusionSet) ([]Lead, []AgentShortfall, error) {
	gender := group.gender
	if gender == GenderAny {
		gender = req.Gender
	}
	allowFallback := group.gender != GenderAny

	candidates, err := e.gath.gather(ctx, gatherRequest{
		role:          role,
		count:         len(group.slots),
		country:       req.Country,
		gender:        gender,
		agentID:       &group.agentID,
		allowFallback: allowFallback,
	}, excl)
	if err != nil {
		return nil, nil, err
	}

	need := len(group.slots)
	if !allowFallback {
		owned := countAgentOwned(candidates, group.agentID)
		if owned < need {
			shortfalls := make([]AgentShortfall, 0, need)
			for _, slot := range group.slots {
				shortfalls = append(shortfalls, AgentShortfall{
					Role:      role,
					Index:     slot.Index,
					AgentID:   group.agentID,
					Available: owned,
				})
			}
			return nil, shortfalls, nil
		}
	}
	if len(candidates) > need {
		candidates = candidates[:need]
	}
	return candidates, nil, nil
}

// fillGeneral serves the slots without an agent pin. An order-level agent
// preference restricts the pool to that agent's leads, with the unassigned
// pool as fallback only when the request names a gender.
func (e *Engine) fillGeneral(ctx context.Context, role Role, count int, req OrderRequest, excl *ExclusionSet) ([]Lead, []AgentShortfall, error) {
	var agentID *uuid.UUID
	if role != RoleCold {
		agentID = req.AgentID
	}
	allowFallback := req.Gender != GenderAny

	candidates, err := e.gath.gather(ctx, gatherRequest{
		role:          role,
		count:         count,
		country:       req.Country,
		gender:        req.Gender,
		agentID:       agentID,
		allowFallback: allowFallback,
	}, excl)
	if err != nil {
		return nil, nil, err
	}

	if agentID != nil && !allowFallback {
		owned := countAgentOwned(candidates, *agentID)
		if owned < count {
			return nil, []AgentShortfall{{
				Role:      role,
				Index:     -1, // order-level preference, not a specific slot
				AgentID:   *agentID,
				Available: owned,
			}}, nil
		}
	}

	if role == RoleConversion {
		if len(candidates) > count {
			candidates = candidates[:count]
		}
		return candidates, nil, nil
	}
	return distributeByPattern(candidates, count), nil, nil
}

// claim marks delivered leads and their phones as taken for the remainder
// of the allocation.
func (e *Engine) claim(excl *ExclusionSet, leads []Lead) {
	for _, lead := range leads {
		excl.ExcludeEverywhere(lead.ID)
		excl.ExcludePhone(lead.Phone)
	}
}

type slotGroup struct {
	agentID uuid.UUID
	gender  Gender
	slots   []SlotAssignment
}

// groupSlots batches a role's slot assignments by agent and fallback
// gender, preserving first-appearance order.
func groupSlots(slots []SlotAssignment, role Role) []slotGroup {
	type key struct {
		agentID uuid.UUID
		gender  Gender
	}
	var groups []slotGroup
	index := make(map[key]int)
	for _, slot := range slots {
		if slot.Role != role {
			continue
		}
		k := key{agentID: slot.AgentID, gender: slot.FallbackGender}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, slotGroup{agentID: slot.AgentID, gender: slot.FallbackGender})
		}
		groups[i].slots = append(groups[i].slots, slot)
	}
	return groups
}
