package allocation

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// nanpLead builds a primary lead whose fingerprint is the four digits
// following the +1 country code.
func nanpLead(fingerprint, suffix string) Lead {
	return Lead{
		ID:       uuid.New(),
		Category: CategoryPrimary,
		Phone:    "+1" + fingerprint + suffix,
		Active:   true,
	}
}

func TestDistributeSmallOrderTakesOnePerFingerprint(t *testing.T) {
	var leads []Lead
	// Three fingerprint groups with four leads each.
	for _, fp := range []string{"2345", "3456", "4567"} {
		for i := 0; i < 4; i++ {
			leads = append(leads, nanpLead(fp, fmt.Sprintf("67890%d", i)))
		}
	}

	selected := distributeByPattern(leads, 10)
	if len(selected) != 3 {
		t.Fatalf("expected one lead per fingerprint (3), got %d", len(selected))
	}
	seen := map[string]bool{}
	for _, lead := range selected {
		fp, _ := fingerprint(lead.Phone)
		if seen[fp] {
			t.Fatalf("fingerprint %s selected twice in a small order", fp)
		}
		seen[fp] = true
	}
}

func TestDistributeSmallOrderBackfillsFromLeadsWithoutFingerprint(t *testing.T) {
	leads := []Lead{
		nanpLead("2345", "678901"),
		nanpLead("3456", "678901"),
		{ID: uuid.New(), Category: CategoryPrimary, Phone: "123", Active: true},
		{ID: uuid.New(), Category: CategoryPrimary, Phone: "", Active: true},
	}

	selected := distributeByPattern(leads, 4)
	if len(selected) != 4 {
		t.Fatalf("expected backfill to reach 4, got %d", len(selected))
	}
}

func TestDistributeDropsRepeatedTailDigits(t *testing.T) {
	leads := []Lead{
		nanpLead("2344", "678901"), // 3rd and 4th digits repeat
		nanpLead("2345", "678901"),
	}

	selected := distributeByPattern(leads, 5)
	if len(selected) != 1 {
		t.Fatalf("expected the tail-repeating lead to be dropped, got %d leads", len(selected))
	}
	if fp, _ := fingerprint(selected[0].Phone); fp != "2345" {
		t.Fatalf("expected the clean lead to survive, got fingerprint %s", fp)
	}
}

func TestDistributeMediumOrderRoundRobinsAcrossFingerprints(t *testing.T) {
	var leads []Lead
	for i := 0; i < 10; i++ {
		leads = append(leads, nanpLead("2345", fmt.Sprintf("67890%d", i)))
	}
	for i := 0; i < 10; i++ {
		leads = append(leads, nanpLead("3456", fmt.Sprintf("67890%d", i)))
	}

	selected := distributeByPattern(leads, 12)
	if len(selected) != 12 {
		t.Fatalf("expected 12 leads, got %d", len(selected))
	}
	// Round-robin alternates between the two groups.
	for i := 0; i < 12; i += 2 {
		fpA, _ := fingerprint(selected[i].Phone)
		fpB, _ := fingerprint(selected[i+1].Phone)
		if fpA == fpB {
			t.Fatalf("expected alternating fingerprints at positions %d/%d", i, i+1)
		}
	}
}

func TestDistributeSinglePatternFillsMediumAndLargeTiers(t *testing.T) {
	var leads []Lead
	for i := 0; i < 30; i++ {
		leads = append(leads, nanpLead("2345", fmt.Sprintf("678%03d", i)))
	}

	// Ten pairs need twenty takes, so within the tier bounds the pair caps
	// never block before the requested count is reached.
	for _, n := range []int{15, 20, 25} {
		if selected := distributeByPattern(leads, n); len(selected) != n {
			t.Fatalf("expected %d leads from a single fingerprint, got %d", n, len(selected))
		}
	}
}

func TestRoundRobinPairCapSkipsAndStops(t *testing.T) {
	var group []Lead
	for i := 0; i < 10; i++ {
		group = append(group, nanpLead("2345", fmt.Sprintf("678%03d", i)))
	}
	groups := map[string][]Lead{"2345": group}

	// Cap of two pairs: takes 1..4 cover both pairs, take 5 is unpaired,
	// take 6 would form a third pair and the round adds nothing.
	selected := roundRobinWithPairCap([]string{"2345"}, groups, 10, 2)
	if len(selected) != 5 {
		t.Fatalf("expected the pair cap to stop selection at 5, got %d", len(selected))
	}
}

func TestDistributeLargeOrderSpreadsPerFingerprintCap(t *testing.T) {
	var leads []Lead
	patterns := []string{"2345", "3456", "4567", "5678", "6789"}
	for _, fp := range patterns {
		for i := 0; i < 20; i++ {
			leads = append(leads, nanpLead(fp, fmt.Sprintf("678%03d", i)))
		}
	}

	selected := distributeByPattern(leads, 50)
	if len(selected) != 50 {
		t.Fatalf("expected 50 leads, got %d", len(selected))
	}
	counts := map[string]int{}
	for _, lead := range selected {
		fp, _ := fingerprint(lead.Phone)
		counts[fp]++
	}
	// ceil(50/5) = 10 per fingerprint.
	for fp, n := range counts {
		if n != 10 {
			t.Fatalf("expected 10 leads from fingerprint %s, got %d", fp, n)
		}
	}
}

func TestDistributeTruncatesToRequestedCount(t *testing.T) {
	leads := []Lead{
		nanpLead("2345", "678901"),
		nanpLead("3456", "678901"),
		nanpLead("4567", "678901"),
	}

	selected := distributeByPattern(leads, 2)
	if len(selected) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(selected))
	}
}
