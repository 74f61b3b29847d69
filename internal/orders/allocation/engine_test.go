package allocation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeStore serves candidates from a slice, applying the same filters the
// SQL store applies and preserving insertion order.
type fakeStore struct {
	leads []Lead
}

func (s *fakeStore) matches(l Lead, q CandidateQuery) bool {
	if l.Archived || !l.Active {
		return false
	}
	if q.Category != "" && l.Category != q.Category {
		return false
	}
	if q.Country != "" && !strings.EqualFold(l.Country, q.Country) {
		return false
	}
	if q.Gender != GenderAny && l.Gender != q.Gender {
		return false
	}
	if q.AgentID != nil && (l.AssignedAgentID == nil || *l.AssignedAgentID != *q.AgentID) {
		return false
	}
	if q.Unassigned && l.AssignedAgentID != nil {
		return false
	}
	for _, id := range q.ExcludeIDs {
		if l.ID == id {
			return false
		}
	}
	return true
}

func (s *fakeStore) FindCandidates(_ context.Context, q CandidateQuery) ([]Lead, error) {
	var out []Lead
	for _, l := range s.leads {
		if !s.matches(l, q) {
			continue
		}
		out = append(out, l)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) CountMatching(_ context.Context, q CandidateQuery) (int, error) {
	n := 0
	for _, l := range s.leads {
		if s.matches(l, q) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) RecentlyAllocatedPhones(_ context.Context, phones []string, since time.Time) (map[string]struct{}, error) {
	want := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		want[p] = struct{}{}
	}
	hot := make(map[string]struct{})
	for _, l := range s.leads {
		if l.Category != CategoryPrimary || l.Phone == "" || l.LastAllocatedAt == nil {
			continue
		}
		if _, ok := want[l.Phone]; !ok {
			continue
		}
		if l.LastAllocatedAt.After(since) {
			hot[l.Phone] = struct{}{}
		}
	}
	return hot, nil
}

func newTestEngine(store *fakeStore, now time.Time) *Engine {
	return New(store, nil, Config{Now: func() time.Time { return now }})
}

func TestAllocateFulfilledAcrossRoles(t *testing.T) {
	store := &fakeStore{leads: []Lead{
		nanpLead("2345", "678901"),
		nanpLead("3456", "789012"),
		nanpLead("4567", "890123"),
		{ID: uuid.New(), Category: CategoryCold, Phone: "+15678901234", Active: true},
	}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 2, Filler: 1, Cold: 1},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Status != StatusFulfilled {
		t.Fatalf("expected fulfilled, got %s (reasons: %v)", result.Status, result.ShortfallReasons)
	}
	if result.Delivered != (Counts{Conversion: 2, Filler: 1, Cold: 1}) {
		t.Fatalf("unexpected delivered counts: %+v", result.Delivered)
	}
	if len(result.ShortfallReasons) != 0 {
		t.Fatalf("fulfilled order must carry no shortfall reasons, got %v", result.ShortfallReasons)
	}
	seen := map[uuid.UUID]bool{}
	for _, al := range result.Leads {
		if seen[al.Lead.ID] {
			t.Fatalf("lead %s delivered twice", al.Lead.ID)
		}
		seen[al.Lead.ID] = true
	}
}

func TestAllocateCooldownWindow(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-5 * 24 * time.Hour)
	rested := now.Add(-15 * 24 * time.Hour)
	boundary := now.Add(-240 * time.Hour)

	hot := nanpLead("2345", "678901")
	hot.LastAllocatedAt = &fresh
	old := nanpLead("3456", "789012")
	old.LastAllocatedAt = &rested
	edge := nanpLead("4567", "890123")
	edge.LastAllocatedAt = &boundary

	store := &fakeStore{leads: []Lead{hot, old, edge}}
	eng := newTestEngine(store, now)

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 3},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 2 {
		t.Fatalf("expected 2 delivered (5-day-old lead cooling down), got %d", result.Delivered.Conversion)
	}
	for _, al := range result.Leads {
		if al.Lead.ID == hot.ID {
			t.Fatal("lead allocated five days ago must still be in cooldown")
		}
	}
	if result.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", result.Status)
	}
	if len(result.ShortfallReasons) != 1 || !strings.Contains(result.ShortfallReasons[0], "CONVERSION: 2/3 fulfilled (1 short)") {
		t.Fatalf("unexpected shortfall reasons: %v", result.ShortfallReasons)
	}
}

func TestAllocateSharedPhoneSharesCooldown(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-2 * 24 * time.Hour)

	// Two records, same number. Only one was allocated recently but both
	// must sit out the window.
	sibling := nanpLead("2345", "678901")
	recent := nanpLead("2345", "678901")
	recent.LastAllocatedAt = &fresh
	spare := nanpLead("3456", "789012")

	store := &fakeStore{leads: []Lead{sibling, recent, spare}}
	eng := newTestEngine(store, now)

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 2},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 1 {
		t.Fatalf("expected only the spare lead, got %d delivered", result.Delivered.Conversion)
	}
	if result.Leads[0].Lead.ID != spare.ID {
		t.Fatal("expected the lead with the untouched phone number")
	}
}

func TestAllocatePhoneUniqueAcrossRoles(t *testing.T) {
	first := nanpLead("2345", "678901")
	twin := nanpLead("3456", "789012")
	twin.Phone = first.Phone

	store := &fakeStore{leads: []Lead{first, twin}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 1, Filler: 1},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 1 || result.Delivered.Filler != 0 {
		t.Fatalf("expected the duplicate number to block the filler pick, got %+v", result.Delivered)
	}
	if result.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", result.Status)
	}
}

func TestAllocateUnassignedServedFirst(t *testing.T) {
	agent := uuid.New()
	owned := nanpLead("2345", "678901")
	owned.AssignedAgentID = &agent
	freeA := nanpLead("3456", "789012")
	freeB := nanpLead("4567", "890123")

	store := &fakeStore{leads: []Lead{owned, freeA, freeB}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 3},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 3 {
		t.Fatalf("expected all three delivered, got %d", result.Delivered.Conversion)
	}
	if result.Leads[0].Lead.ID != freeA.ID || result.Leads[1].Lead.ID != freeB.ID {
		t.Fatal("unassigned leads must be served before agent-owned ones")
	}
	if result.Leads[2].Lead.ID != owned.ID {
		t.Fatal("agent-owned lead must come last")
	}
}

func TestAllocateAgentPreferenceWithoutFallbackFails(t *testing.T) {
	agent := uuid.New()
	owned := nanpLead("2345", "678901")
	owned.AssignedAgentID = &agent
	free := nanpLead("3456", "789012")

	store := &fakeStore{leads: []Lead{owned, free}}
	eng := newTestEngine(store, time.Now())

	_, err := eng.Allocate(context.Background(), OrderRequest{
		Counts:  Counts{Conversion: 2},
		AgentID: &agent,
	})
	var shortErr *AgentShortfallError
	if err == nil || !errors.As(err, &shortErr) {
		t.Fatalf("expected an agent shortfall error, got %v", err)
	}
	if len(shortErr.Shortfalls) != 1 {
		t.Fatalf("expected one shortfall, got %d", len(shortErr.Shortfalls))
	}
	s := shortErr.Shortfalls[0]
	if s.Index != -1 || s.AgentID != agent || s.Available != 1 {
		t.Fatalf("unexpected shortfall detail: %+v", s)
	}
}

func TestAllocateAgentPreferenceWithGenderFallsBack(t *testing.T) {
	agent := uuid.New()
	owned := nanpLead("2345", "678901")
	owned.AssignedAgentID = &agent
	owned.Gender = GenderFemale
	free := nanpLead("3456", "789012")
	free.Gender = GenderFemale

	store := &fakeStore{leads: []Lead{free, owned}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts:  Counts{Conversion: 2},
		Gender:  GenderFemale,
		AgentID: &agent,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 2 {
		t.Fatalf("expected fallback to the unassigned pool, got %d delivered", result.Delivered.Conversion)
	}
	if result.Leads[0].Lead.ID != owned.ID {
		t.Fatal("agent-owned lead must be served before the fallback band")
	}
}

func TestAllocateCancelledOrderAssignmentDoesNotBlock(t *testing.T) {
	network := uuid.New()
	lead := nanpLead("2345", "678901")
	lead.NetworkAssignments = []NetworkAssignment{
		{NetworkID: network, OrderID: uuid.New(), OrderCancelled: true},
	}

	store := &fakeStore{leads: []Lead{lead}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts:    Counts{Conversion: 1},
		NetworkID: &network,
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 1 {
		t.Fatal("a cancelled order's network assignment must not block reuse")
	}
}

func TestAllocateSlotAssignmentFallsBackOnGender(t *testing.T) {
	agent := uuid.New()
	free := nanpLead("2345", "678901")
	free.Gender = GenderFemale

	store := &fakeStore{leads: []Lead{free}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 1},
		SlotAssignments: []SlotAssignment{
			{Role: RoleConversion, Index: 0, AgentID: agent, FallbackGender: GenderFemale},
		},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 1 || result.Leads[0].Lead.ID != free.ID {
		t.Fatalf("expected the slot to fall back to the unassigned female lead, got %+v", result.Delivered)
	}
}

func TestAllocateSlotAssignmentWithoutFallbackRecordsShortfall(t *testing.T) {
	agent := uuid.New()
	free := nanpLead("2345", "678901")

	store := &fakeStore{leads: []Lead{free}}
	eng := newTestEngine(store, time.Now())

	_, err := eng.Allocate(context.Background(), OrderRequest{
		Counts: Counts{Conversion: 1},
		SlotAssignments: []SlotAssignment{
			{Role: RoleConversion, Index: 0, AgentID: agent},
		},
	})
	var shortErr *AgentShortfallError
	if err == nil || !errors.As(err, &shortErr) {
		t.Fatalf("expected an agent shortfall error, got %v", err)
	}
	if shortErr.Shortfalls[0].Index != 0 || shortErr.Shortfalls[0].Available != 0 {
		t.Fatalf("unexpected shortfall detail: %+v", shortErr.Shortfalls[0])
	}
}

func TestAllocateRejectsMalformedRequests(t *testing.T) {
	eng := newTestEngine(&fakeStore{}, time.Now())

	cases := []OrderRequest{
		{},
		{Counts: Counts{Conversion: -1}},
		{Counts: Counts{Conversion: 1}, Gender: "other"},
		{Counts: Counts{Cold: 1}, SlotAssignments: []SlotAssignment{{Role: RoleCold, Index: 0, AgentID: uuid.New()}}},
		{Counts: Counts{Conversion: 1}, SlotAssignments: []SlotAssignment{{Role: RoleConversion, Index: 3, AgentID: uuid.New()}}},
	}
	for i, req := range cases {
		_, err := eng.Allocate(context.Background(), req)
		var inputErr *InputError
		if err == nil || !errors.As(err, &inputErr) {
			t.Fatalf("case %d: expected an input error, got %v", i, err)
		}
	}
}

func TestAllocateExplicitExclusionsApply(t *testing.T) {
	banned := nanpLead("2345", "678901")
	spare := nanpLead("3456", "789012")

	store := &fakeStore{leads: []Lead{banned, spare}}
	eng := newTestEngine(store, time.Now())

	result, err := eng.Allocate(context.Background(), OrderRequest{
		Counts:         Counts{Conversion: 1},
		ExcludeLeadIDs: []uuid.UUID{banned.ID},
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if result.Delivered.Conversion != 1 || result.Leads[0].Lead.ID != spare.ID {
		t.Fatal("excluded lead must never be offered")
	}
}
