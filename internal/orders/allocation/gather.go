package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Candidate fetch sizing. Pools at or below fullFetchThreshold are loaded
// whole; larger pools are sampled with an oversampling multiplier so the
// downstream filters still have room to discard.
const (
	minFetchMultiplier = 20
	maxFetchMultiplier = 50
)

// gatherRequest describes one role's candidate gathering pass.
type gatherRequest struct {
	role          Role
	count         int
	country       string
	gender        Gender
	agentID       *uuid.UUID
	allowFallback bool
}

// gatherer turns a gatherRequest into an ordered, conflict-free candidate
// list. It never truncates to the requested count: the deduplication pass
// needs the full breadth to spread across phone patterns.
type gatherer struct {
	store              Store
	now                func() time.Time
	cooldownWindow     time.Duration
	fullFetchThreshold int
}

func (g *gatherer) gather(ctx context.Context, req gatherRequest, excl *ExclusionSet) ([]Lead, error) {
	cat := req.role.Category()
	base := CandidateQuery{
		Category:   cat,
		Country:    req.country,
		Gender:     req.gender,
		ExcludeIDs: excl.IDs(cat),
	}

	pool, err := g.store.CountMatching(ctx, base)
	if err != nil {
		return nil, err
	}
	if pool == 0 {
		return nil, nil
	}
	limit := g.fetchLimit(pool, req.count)

	var candidates []Lead
	if req.agentID != nil {
		// Two banded fetches: the agent's own leads, then (only with
		// fallback enabled) the unassigned pool. Other agents' leads are
		// never candidates here.
		owned := base
		owned.AgentID = req.agentID
		owned.Limit = limit
		candidates, err = g.store.FindCandidates(ctx, owned)
		if err != nil {
			return nil, err
		}
		if req.allowFallback {
			free := base
			free.Unassigned = true
			free.Limit = limit
			fallback, err := g.store.FindCandidates(ctx, free)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, fallback...)
		}
	} else {
		q := base
		q.Limit = limit
		candidates, err = g.store.FindCandidates(ctx, q)
		if err != nil {
			return nil, err
		}
		candidates = sequenceUnassignedFirst(candidates)
	}

	if cat == CategoryPrimary {
		candidates, err = g.filterCooldown(ctx, candidates)
		if err != nil {
			return nil, err
		}
	}

	out := candidates[:0:0]
	for _, lead := range candidates {
		if !lead.Selectable() {
			continue
		}
		if excl.Excluded(cat, lead.ID) || excl.PhoneTaken(lead.Phone) {
			continue
		}
		if excl.Blocked(lead) {
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

// filterCooldown drops primary leads still inside the reuse window. The
// window is shared across leads with the same phone number, so a second
// store lookup catches siblings of recently allocated records.
func (g *gatherer) filterCooldown(ctx context.Context, leads []Lead) ([]Lead, error) {
	now := g.now()
	rested := leads[:0:0]
	phones := make([]string, 0, len(leads))
	for _, lead := range leads {
		if lead.InCooldown(now, g.cooldownWindow) {
			continue
		}
		rested = append(rested, lead)
		if lead.Phone != "" {
			phones = append(phones, lead.Phone)
		}
	}
	if len(phones) == 0 {
		return rested, nil
	}

	hot, err := g.store.RecentlyAllocatedPhones(ctx, phones, now.Add(-g.cooldownWindow))
	if err != nil {
		return nil, err
	}
	if len(hot) == 0 {
		return rested, nil
	}
	out := rested[:0:0]
	for _, lead := range rested {
		if _, shared := hot[lead.Phone]; shared {
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

// fetchLimit sizes the candidate fetch for a pool of the given size.
func (g *gatherer) fetchLimit(pool, requested int) int {
	if pool <= g.fullFetchThreshold {
		return pool
	}
	if requested <= 0 {
		return g.fullFetchThreshold
	}
	multiplier := (pool + requested - 1) / requested
	if multiplier < minFetchMultiplier {
		multiplier = minFetchMultiplier
	}
	if multiplier > maxFetchMultiplier {
		multiplier = maxFetchMultiplier
	}
	limit := requested * multiplier
	if limit > pool {
		limit = pool
	}
	return limit
}
