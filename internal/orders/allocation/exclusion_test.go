package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBlockedMatchesNetworkAssignmentHistory(t *testing.T) {
	network := uuid.New()
	excl := NewExclusionSet(&network, nil)

	assigned := Lead{ID: uuid.New(), NetworkAssignments: []NetworkAssignment{
		{NetworkID: network, OrderID: uuid.New()},
	}}
	if !excl.Blocked(assigned) {
		t.Fatal("expected a lead already on the target network to be blocked")
	}

	elsewhere := Lead{ID: uuid.New(), NetworkAssignments: []NetworkAssignment{
		{NetworkID: uuid.New(), OrderID: uuid.New()},
	}}
	if excl.Blocked(elsewhere) {
		t.Fatal("expected a lead on a different network to pass")
	}
}

func TestBlockedIgnoresCancelledOrderAssignments(t *testing.T) {
	network := uuid.New()
	broker := uuid.New()
	excl := NewExclusionSet(&network, []uuid.UUID{broker})

	lead := Lead{ID: uuid.New(),
		NetworkAssignments: []NetworkAssignment{
			{NetworkID: network, OrderID: uuid.New(), OrderCancelled: true},
		},
		BrokerAssignments: []BrokerAssignment{
			{BrokerID: broker, OrderID: uuid.New(), OrderCancelled: true},
		},
	}
	if excl.Blocked(lead) {
		t.Fatal("expected cancelled-order assignments to release the lead")
	}
}

func TestBlockedMatchesAnyTargetBroker(t *testing.T) {
	brokerA := uuid.New()
	brokerB := uuid.New()
	excl := NewExclusionSet(nil, []uuid.UUID{brokerA, brokerB})

	lead := Lead{ID: uuid.New(), BrokerAssignments: []BrokerAssignment{
		{BrokerID: brokerB, OrderID: uuid.New()},
	}}
	if !excl.Blocked(lead) {
		t.Fatal("expected a lead on one of the target brokers to be blocked")
	}
}

func TestExclusionSetTracksIDsPerCategory(t *testing.T) {
	excl := NewExclusionSet(nil, nil)
	id := uuid.New()
	excl.ExcludeIDs(CategoryPrimary, id)

	if !excl.Excluded(CategoryPrimary, id) {
		t.Fatal("expected the id to be excluded in primary")
	}
	if excl.Excluded(CategoryCold, id) {
		t.Fatal("expected the id to remain eligible in cold")
	}

	everywhere := uuid.New()
	excl.ExcludeEverywhere(everywhere)
	if !excl.Excluded(CategoryPrimary, everywhere) || !excl.Excluded(CategoryCold, everywhere) {
		t.Fatal("expected the id to be excluded in every category")
	}
}

func TestExclusionSetTracksPhones(t *testing.T) {
	excl := NewExclusionSet(nil, nil)
	excl.ExcludePhone("+12345678901")
	excl.ExcludePhone("")

	if !excl.PhoneTaken("+12345678901") {
		t.Fatal("expected the phone to be taken")
	}
	if excl.PhoneTaken("") {
		t.Fatal("expected empty phones to never collide")
	}
}

func TestInCooldownBoundaryIsExclusive(t *testing.T) {
	now := time.Now()
	window := 240 * time.Hour

	exactly := now.Add(-window)
	lead := Lead{LastAllocatedAt: &exactly}
	if lead.InCooldown(now, window) {
		t.Fatal("expected a lead allocated exactly one window ago to be eligible")
	}

	inside := now.Add(-window + time.Minute)
	lead = Lead{LastAllocatedAt: &inside}
	if !lead.InCooldown(now, window) {
		t.Fatal("expected a lead allocated inside the window to be cooling down")
	}

	if (Lead{}).InCooldown(now, window) {
		t.Fatal("expected a never-allocated lead to be eligible")
	}
}
