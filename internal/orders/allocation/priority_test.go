package allocation

import (
	"testing"

	"github.com/google/uuid"
)

func TestSequenceUnassignedFirstKeepsOrderWithinBands(t *testing.T) {
	agent := uuid.New()
	a := Lead{ID: uuid.New(), AssignedAgentID: &agent}
	b := Lead{ID: uuid.New()}
	c := Lead{ID: uuid.New(), AssignedAgentID: &agent}
	d := Lead{ID: uuid.New()}

	out := sequenceUnassignedFirst([]Lead{a, b, c, d})
	want := []uuid.UUID{b.ID, d.ID, a.ID, c.ID}
	for i, lead := range out {
		if lead.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], lead.ID)
		}
	}
}

func TestCountAgentOwned(t *testing.T) {
	agent := uuid.New()
	other := uuid.New()
	leads := []Lead{
		{ID: uuid.New(), AssignedAgentID: &agent},
		{ID: uuid.New(), AssignedAgentID: &other},
		{ID: uuid.New()},
		{ID: uuid.New(), AssignedAgentID: &agent},
	}
	if n := countAgentOwned(leads, agent); n != 2 {
		t.Fatalf("expected 2 owned leads, got %d", n)
	}
}
