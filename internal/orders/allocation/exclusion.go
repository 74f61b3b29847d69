package allocation

import "github.com/google/uuid"

// ExclusionSet accumulates everything an allocation must not deliver:
// per-category lead ids (slot replacement history, leads already pulled for
// an earlier role), phone numbers already taken in this allocation, and the
// network/broker conflict dimensions checked against assignment history.
//
// The set is built once per allocation and mutated as roles are filled, so
// a phone delivered to the conversion role can never reappear in filler.
type ExclusionSet struct {
	networkID  *uuid.UUID
	brokerIDs  []uuid.UUID
	byCategory map[Category]IDSet
	phones     map[string]struct{}
}

// NewExclusionSet returns an empty set targeting the given network and brokers.
func NewExclusionSet(networkID *uuid.UUID, brokerIDs []uuid.UUID) *ExclusionSet {
	return &ExclusionSet{
		networkID: networkID,
		brokerIDs: brokerIDs,
		byCategory: map[Category]IDSet{
			CategoryPrimary: NewIDSet(),
			CategoryCold:    NewIDSet(),
		},
		phones: make(map[string]struct{}),
	}
}

// ExcludeIDs bars the ids from selection within one category.
func (x *ExclusionSet) ExcludeIDs(cat Category, ids ...uuid.UUID) {
	for _, id := range ids {
		x.byCategory[cat].Add(id)
	}
}

// ExcludeEverywhere bars an id from selection in every category.
func (x *ExclusionSet) ExcludeEverywhere(id uuid.UUID) {
	for _, set := range x.byCategory {
		set.Add(id)
	}
}

// ExcludePhone bars a phone number for the remainder of the allocation.
// Empty phones are ignored: leads without a phone do not collide.
func (x *ExclusionSet) ExcludePhone(phone string) {
	if phone == "" {
		return
	}
	x.phones[phone] = struct{}{}
}

// IDs returns the excluded ids for a category, for pushing into store queries.
func (x *ExclusionSet) IDs(cat Category) []uuid.UUID {
	return x.byCategory[cat].Values()
}

// Excluded reports whether the id is barred in the category.
func (x *ExclusionSet) Excluded(cat Category, id uuid.UUID) bool {
	return x.byCategory[cat].Has(id)
}

// PhoneTaken reports whether the phone was already delivered in this allocation.
func (x *ExclusionSet) PhoneTaken(phone string) bool {
	if phone == "" {
		return false
	}
	_, ok := x.phones[phone]
	return ok
}

// Blocked reports whether the lead's assignment history conflicts with the
// allocation's target network or any target broker. Assignments made by
// cancelled orders do not count: cancellation releases the lead.
func (x *ExclusionSet) Blocked(lead Lead) bool {
	if x.networkID != nil && lead.AssignedToNetwork(*x.networkID) {
		return true
	}
	for _, brokerID := range x.brokerIDs {
		if lead.AssignedToBroker(brokerID) {
			return true
		}
	}
	return false
}
