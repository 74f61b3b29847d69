package allocation

import "github.com/google/uuid"

// IDSet is a membership set of lead identifiers.
type IDSet map[uuid.UUID]struct{}

// NewIDSet returns a set preloaded with the given ids.
func NewIDSet(ids ...uuid.UUID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts an id into the set.
func (s IDSet) Add(id uuid.UUID) {
	s[id] = struct{}{}
}

// Has reports whether id is a member.
func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Values returns the members in unspecified order.
func (s IDSet) Values() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// Len returns the number of members.
func (s IDSet) Len() int {
	return len(s)
}
