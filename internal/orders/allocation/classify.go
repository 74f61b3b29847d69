package allocation

import (
	"context"
	"fmt"
	"strings"
)

// ClassifyCounts derives the fulfillment status from requested versus
// delivered counts. Nothing delivered at all means the order is cancelled;
// every role met in full means fulfilled; anything in between is partial.
func ClassifyCounts(requested, delivered Counts) Status {
	if delivered.Total() == 0 {
		return StatusCancelled
	}
	if delivered == requested {
		return StatusFulfilled
	}
	return StatusPartial
}

// diagnoser explains shortfalls by re-walking the candidate pool with the
// request's filters applied one stage at a time, reporting which stage
// collapsed the pool below the requested count. All reads, no writes.
type diagnoser struct {
	store Store
}

func (d *diagnoser) explain(ctx context.Context, role Role, requested, delivered int, req OrderRequest) (string, error) {
	label := strings.ToUpper(string(role))
	reason := fmt.Sprintf("%s: %d/%d fulfilled", label, delivered, requested)
	if delivered >= requested {
		return reason, nil
	}
	reason += fmt.Sprintf(" (%d short)", requested-delivered)

	cat := role.Category()
	var issues []string

	total, err := d.store.CountMatching(ctx, CandidateQuery{Category: cat})
	if err != nil {
		return "", err
	}
	if total < requested {
		issues = append(issues, fmt.Sprintf("Only %d total %s leads in pool (excluding archived and inactive)", total, role))
		return reason + " - Issues: " + strings.Join(issues, ", "), nil
	}

	prev := total
	if req.Country != "" {
		after, err := d.store.CountMatching(ctx, CandidateQuery{Category: cat, Country: req.Country})
		if err != nil {
			return "", err
		}
		if after < prev && after < requested {
			issues = append(issues, fmt.Sprintf("Country %q filter reduces pool from %d to %d", req.Country, prev, after))
		}
		prev = after
	}
	if req.Gender != GenderAny {
		after, err := d.store.CountMatching(ctx, CandidateQuery{Category: cat, Country: req.Country, Gender: req.Gender})
		if err != nil {
			return "", err
		}
		if after < prev && after < requested {
			issues = append(issues, fmt.Sprintf("Gender %q filter reduces pool from %d to %d", req.Gender, prev, after))
		}
		prev = after
	}

	if prev >= requested && (req.NetworkID != nil || len(req.BrokerIDs) > 0) {
		sampleLimit := 3 * requested
		if sampleLimit < 100 {
			sampleLimit = 100
		}
		sample, err := d.store.FindCandidates(ctx, CandidateQuery{
			Category: cat,
			Country:  req.Country,
			Gender:   req.Gender,
			Limit:    sampleLimit,
		})
		if err != nil {
			return "", err
		}
		if req.NetworkID != nil {
			surviving := sample[:0:0]
			for _, lead := range sample {
				if !lead.AssignedToNetwork(*req.NetworkID) {
					surviving = append(surviving, lead)
				}
			}
			if len(surviving) < requested {
				issues = append(issues, fmt.Sprintf("Client network conflict: %d of %d sampled leads already assigned", len(sample)-len(surviving), len(sample)))
			}
			sample = surviving
		}
		if len(req.BrokerIDs) > 0 {
			conflicted := 0
			for _, lead := range sample {
				for _, brokerID := range req.BrokerIDs {
					if lead.AssignedToBroker(brokerID) {
						conflicted++
						break
					}
				}
			}
			if len(sample)-conflicted < requested {
				issues = append(issues, fmt.Sprintf("Broker conflict: %d of %d sampled leads already assigned", conflicted, len(sample)))
			}
		}
	}

	if len(issues) == 0 {
		issues = append(issues, fmt.Sprintf("Available leads exhausted after applying all filters (%d available vs %d requested)", prev, requested))
	}
	return reason + " - Issues: " + strings.Join(issues, ", "), nil
}
