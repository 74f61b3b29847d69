package allocation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestClassifyCounts(t *testing.T) {
	requested := Counts{Conversion: 2, Filler: 3}

	cases := []struct {
		name      string
		delivered Counts
		want      Status
	}{
		{"nothing delivered", Counts{}, StatusCancelled},
		{"everything delivered", Counts{Conversion: 2, Filler: 3}, StatusFulfilled},
		{"one role short", Counts{Conversion: 2, Filler: 1}, StatusPartial},
		{"one role empty", Counts{Conversion: 2}, StatusPartial},
	}
	for _, tc := range cases {
		if got := ClassifyCounts(requested, tc.delivered); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestExplainReportsTinyPool(t *testing.T) {
	store := &fakeStore{leads: []Lead{nanpLead("2345", "678901")}}
	d := &diagnoser{store: store}

	reason, err := d.explain(context.Background(), RoleConversion, 3, 1, OrderRequest{})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.HasPrefix(reason, "CONVERSION: 1/3 fulfilled (2 short)") {
		t.Fatalf("unexpected prefix: %q", reason)
	}
	if !strings.Contains(reason, "Only 1 total conversion leads in pool") {
		t.Fatalf("expected the pool-size issue, got %q", reason)
	}
}

func TestExplainReportsCountryFilter(t *testing.T) {
	leads := make([]Lead, 0, 5)
	for i, country := range []string{"Germany", "Germany", "France", "France", "France"} {
		lead := nanpLead("2345", fmt.Sprintf("67890%d", i))
		lead.Country = country
		leads = append(leads, lead)
	}
	d := &diagnoser{store: &fakeStore{leads: leads}}

	reason, err := d.explain(context.Background(), RoleConversion, 4, 2, OrderRequest{Country: "Germany"})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(reason, `Country "Germany" filter reduces pool from 5 to 2`) {
		t.Fatalf("expected the country issue, got %q", reason)
	}
}

func TestExplainReportsNetworkConflicts(t *testing.T) {
	network := uuid.New()
	leads := make([]Lead, 0, 4)
	for i := 0; i < 4; i++ {
		lead := nanpLead("2345", fmt.Sprintf("67890%d", i))
		if i < 3 {
			lead.NetworkAssignments = []NetworkAssignment{{NetworkID: network, OrderID: uuid.New()}}
		}
		leads = append(leads, lead)
	}
	d := &diagnoser{store: &fakeStore{leads: leads}}

	reason, err := d.explain(context.Background(), RoleConversion, 3, 1, OrderRequest{NetworkID: &network})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(reason, "Client network conflict: 3 of 4 sampled leads already assigned") {
		t.Fatalf("expected the network conflict issue, got %q", reason)
	}
}

func TestExplainFallsBackToExhaustedMessage(t *testing.T) {
	leads := []Lead{
		nanpLead("2345", "678901"),
		nanpLead("3456", "789012"),
		nanpLead("4567", "890123"),
	}
	d := &diagnoser{store: &fakeStore{leads: leads}}

	reason, err := d.explain(context.Background(), RoleFiller, 2, 1, OrderRequest{})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(reason, "Available leads exhausted after applying all filters (3 available vs 2 requested)") {
		t.Fatalf("expected the exhausted fallback, got %q", reason)
	}
}
