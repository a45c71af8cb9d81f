package checklist

import (
	"fmt"
	"strings"

	"github.com/ukydev/equipment-checklist/internal/models"
)

// ScorePolicy selects the denominator of the percentage score.
type ScorePolicy string

const (
	// PolicyDecided scores passed items against checked (passed + failed) items.
	PolicyDecided ScorePolicy = "decided"
	// PolicyTotal scores passed items against every item in the checklist.
	PolicyTotal ScorePolicy = "total"
)

// DefaultScorePolicy is used when nothing is configured.
const DefaultScorePolicy = PolicyDecided

// ParseScorePolicy reads a policy name; empty means the default.
func ParseScorePolicy(s string) (ScorePolicy, error) {
	switch ScorePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultScorePolicy, nil
	case PolicyDecided:
		return PolicyDecided, nil
	case PolicyTotal:
		return PolicyTotal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScorePolicy, s)
	}
}

// Score is the aggregate of a checklist state.
type Score struct {
	Policy    ScorePolicy `json:"policy"`
	Total     int         `json:"total_items"`
	Passed    int         `json:"passed_items"`
	Failed    int         `json:"failed_items"`
	Checked   int         `json:"checked_items"`
	Unchecked int         `json:"unchecked_items"`
	Percent   int         `json:"score"`
}

// Calculate aggregates s under policy. An unknown policy falls back to the default.
func Calculate(s *State, policy ScorePolicy) Score {
	counts := s.Counts()
	sc := Score{
		Policy:    policy,
		Passed:    counts[models.StatusPassed],
		Failed:    counts[models.StatusFailed],
		Unchecked: counts[models.StatusUnchecked],
	}
	sc.Checked = sc.Passed + sc.Failed
	sc.Total = sc.Checked + sc.Unchecked

	switch policy {
	case PolicyTotal:
		sc.Percent = percent(sc.Passed, sc.Total)
	default:
		sc.Policy = PolicyDecided
		sc.Percent = percent(sc.Passed, sc.Checked)
	}
	return sc
}

// percent is round-half-up of part/whole*100, 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (part*200 + whole) / (2 * whole)
}
