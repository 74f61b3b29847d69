// Package allocation implements the lead allocation engine: candidate
// gathering, exclusion filtering, agent priority sequencing, phone-pattern
// deduplication and fulfillment classification. The engine is a pure
// library over a read-only Store port; persistence of the outcome belongs
// to the orders service.
package allocation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the intrinsic kind of a lead record.
type Category string

const (
	// CategoryPrimary leads serve both the conversion and filler order
	// roles and carry the reuse cooldown.
	CategoryPrimary Category = "primary"
	// CategoryCold leads fill cold-outreach slots and have no cooldown.
	CategoryCold Category = "cold"
)

// Role is the purpose a lead serves within one order. It is attached to
// the allocation result, never to the lead itself.
type Role string

const (
	RoleConversion Role = "conversion"
	RoleFiller     Role = "filler"
	RoleCold       Role = "cold"
)

// Roles lists every role in allocation order.
var Roles = []Role{RoleConversion, RoleFiller, RoleCold}

// Category returns the lead category that can serve this role.
func (r Role) Category() Category {
	if r == RoleCold {
		return CategoryCold
	}
	return CategoryPrimary
}

// Gender is an optional lead attribute used for filtering.
type Gender string

const (
	GenderAny         Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// Valid reports whether the gender is one of the known values.
func (g Gender) Valid() bool {
	switch g {
	case GenderAny, GenderMale, GenderFemale, GenderUnspecified:
		return true
	}
	return false
}

// NetworkAssignment records that a lead was bound to a client network by an
// order. OrderCancelled is joined in by the store so the engine can apply
// the release-on-cancellation rule without a second lookup.
type NetworkAssignment struct {
	NetworkID      uuid.UUID
	OrderID        uuid.UUID
	OrderCancelled bool
	AssignedAt     time.Time
}

// BrokerAssignment records that a lead was bound to a client broker by an order.
type BrokerAssignment struct {
	BrokerID       uuid.UUID
	OrderID        uuid.UUID
	OrderCancelled bool
	AssignedAt     time.Time
}

// Lead is the engine's view of a lead record.
type Lead struct {
	ID                 uuid.UUID
	Category           Category
	Country            string
	Gender             Gender
	Phone              string
	AssignedAgentID    *uuid.UUID
	LastAllocatedAt    *time.Time
	NetworkAssignments []NetworkAssignment
	BrokerAssignments  []BrokerAssignment
	Archived           bool
	Active             bool
}

// Selectable reports whether the lead may ever be offered by the engine.
func (l Lead) Selectable() bool {
	return !l.Archived && l.Active
}

// InCooldown reports whether the lead's own last allocation falls strictly
// inside the cooldown window. A lead allocated exactly window ago is eligible.
func (l Lead) InCooldown(now time.Time, window time.Duration) bool {
	if l.LastAllocatedAt == nil {
		return false
	}
	return l.LastAllocatedAt.After(now.Add(-window))
}

// AssignedToNetwork reports whether the lead is bound to the network by any
// order that was not cancelled.
func (l Lead) AssignedToNetwork(networkID uuid.UUID) bool {
	for _, a := range l.NetworkAssignments {
		if a.NetworkID == networkID && !a.OrderCancelled {
			return true
		}
	}
	return false
}

// AssignedToBroker reports whether the lead is bound to the broker by any
// order that was not cancelled.
func (l Lead) AssignedToBroker(brokerID uuid.UUID) bool {
	for _, a := range l.BrokerAssignments {
		if a.BrokerID == brokerID && !a.OrderCancelled {
			return true
		}
	}
	return false
}

// Counts holds per-role lead counts for a request or a result.
type Counts struct {
	Conversion int `json:"conversion"`
	Filler     int `json:"filler"`
	Cold       int `json:"cold"`
}

// Of returns the count for the given role.
func (c Counts) Of(r Role) int {
	switch r {
	case RoleConversion:
		return c.Conversion
	case RoleFiller:
		return c.Filler
	case RoleCold:
		return c.Cold
	}
	return 0
}

// Add increments the count for the given role.
func (c *Counts) Add(r Role, n int) {
	switch r {
	case RoleConversion:
		c.Conversion += n
	case RoleFiller:
		c.Filler += n
	case RoleCold:
		c.Cold += n
	}
}

// Total returns the sum across all roles.
func (c Counts) Total() int {
	return c.Conversion + c.Filler + c.Cold
}

// SlotAssignment pins one request slot of a role to a specific agent.
// FallbackGender, when set, both narrows the slot's gender filter and
// enables falling back to unassigned leads if the agent's own pool is short.
type SlotAssignment struct {
	Role           Role
	Index          int
	AgentID        uuid.UUID
	FallbackGender Gender
}

// OrderRequest describes one allocation attempt.
type OrderRequest struct {
	Counts          Counts
	Country         string
	Gender          Gender
	NetworkID       *uuid.UUID
	BrokerIDs       []uuid.UUID
	CampaignID      *uuid.UUID
	AgentID         *uuid.UUID
	SlotAssignments []SlotAssignment
	// ExcludeLeadIDs are identifiers that must never be offered, e.g. the
	// full replacement history of an order slot during a swap.
	ExcludeLeadIDs []uuid.UUID
}

// Validate checks the request for malformed input. It returns an
// *InputError so callers can distinguish bad input from supply problems.
func (r OrderRequest) Validate() error {
	if r.Counts.Conversion < 0 || r.Counts.Filler < 0 || r.Counts.Cold < 0 {
		return &InputError{Field: "counts", Reason: "requested counts must not be negative"}
	}
	if r.Counts.Total() == 0 {
		return &InputError{Field: "counts", Reason: "at least one lead must be requested"}
	}
	if !r.Gender.Valid() {
		return &InputError{Field: "gender", Reason: fmt.Sprintf("unknown gender %q", r.Gender)}
	}
	for _, slot := range r.SlotAssignments {
		if slot.Role == RoleCold {
			return &InputError{Field: "slotAssignments", Reason: "cold slots cannot be agent-assigned"}
		}
		if slot.Index < 0 || slot.Index >= r.Counts.Of(slot.Role) {
			return &InputError{Field: "slotAssignments", Reason: fmt.Sprintf("slot index %d out of range for role %s", slot.Index, slot.Role)}
		}
		if slot.AgentID == uuid.Nil {
			return &InputError{Field: "slotAssignments", Reason: "slot assignment requires an agent"}
		}
		if !slot.FallbackGender.Valid() {
			return &InputError{Field: "slotAssignments", Reason: fmt.Sprintf("unknown fallback gender %q", slot.FallbackGender)}
		}
	}
	return nil
}

// Status is the terminal fulfillment state of an allocation.
type Status string

const (
	StatusFulfilled Status = "fulfilled"
	StatusPartial   Status = "partial"
	StatusCancelled Status = "cancelled"
)

// AllocatedLead is a selected lead tagged with the role it serves in this order.
type AllocatedLead struct {
	Lead Lead
	Role Role
}

// AllocationResult is the outcome of one allocation attempt.
type AllocationResult struct {
	Leads            []AllocatedLead
	Delivered        Counts
	Status           Status
	ShortfallReasons []string
}

// CandidateQuery describes one candidate fetch against the store.
// Implementations must never return archived or inactive leads.
type CandidateQuery struct {
	Category   Category
	Country    string
	Gender     Gender
	AgentID    *uuid.UUID // only leads assigned to this agent
	Unassigned bool       // only leads with no assigned agent
	ExcludeIDs []uuid.UUID
	Limit      int // 0 means no limit
}

// Store is the persistence port consumed by the engine. All methods are
// read-only; store errors propagate to the caller unwrapped.
type Store interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]Lead, error)
	CountMatching(ctx context.Context, q CandidateQuery) (int, error)
	// RecentlyAllocatedPhones returns the subset of phones for which any
	// primary-category lead was allocated after the given instant. Leads
	// sharing a phone number share one reuse clock.
	RecentlyAllocatedPhones(ctx context.Context, phones []string, since time.Time) (map[string]struct{}, error)
}

// InputError reports a malformed allocation request. No partial work is
// performed when it is returned.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid allocation request: %s: %s", e.Field, e.Reason)
}

// AgentShortfall identifies one agent-pinned slot that could not be filled
// from the agent's own leads while fallback was disabled.
type AgentShortfall struct {
	Role      Role      `json:"role"`
	Index     int       `json:"index"`
	AgentID   uuid.UUID `json:"agentId"`
	Available int       `json:"available"`
}

// AgentShortfallError is a distinguished signal, not a supply shortfall:
// the caller is expected to re-invoke with a fallback gender before the
// engine will substitute unrelated leads.
type AgentShortfallError struct {
	Shortfalls []AgentShortfall
}

func (e *AgentShortfallError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s slot %d (agent %s: %d available)", s.Role, s.Index, s.AgentID, s.Available))
	}
	return "insufficient agent-assigned leads, fallback disabled: " + strings.Join(parts, ", ")
}
