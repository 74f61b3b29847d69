package allocation

import "github.com/google/uuid"

// sequenceUnassignedFirst orders candidates so leads without an assigned
// agent come before agent-assigned ones, preserving store order within each
// band. Used when the request carries no agent preference: untouched leads
// are burned before anyone's working set.
func sequenceUnassignedFirst(leads []Lead) []Lead {
	out := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if l.AssignedAgentID == nil {
			out = append(out, l)
		}
	}
	for _, l := range leads {
		if l.AssignedAgentID != nil {
			out = append(out, l)
		}
	}
	return out
}

// countAgentOwned returns how many of the leads belong to the agent.
func countAgentOwned(leads []Lead, agentID uuid.UUID) int {
	n := 0
	for _, l := range leads {
		if l.AssignedAgentID != nil && *l.AssignedAgentID == agentID {
			n++
		}
	}
	return n
}
