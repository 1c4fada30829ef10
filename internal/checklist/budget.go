package checklist

import (
	"math"

	"stepwise/internal/model"
)

// CalculateBudgetStats sums money across the checklist: every step counts
// toward the total, completed steps count as spent. Percentage is spent as a
// share of total, rounded to two decimals for display, and 0 when the total
// is 0. IsOverBudget should not occur in normal use (spent is a subset of
// total) but the contract holds if step values were edited inconsistently.
func CalculateBudgetStats(groups []model.Group) model.BudgetStats {
	var stats model.BudgetStats
	for _, g := range groups {
		for _, st := range g.Steps {
			amount := st.Money.Amount()
			stats.Total += amount
			if st.Completed {
				stats.Spent += amount
			}
		}
	}
	stats.Remaining = stats.Total - stats.Spent
	if stats.Total != 0 {
		stats.Percentage = round2(stats.Spent / stats.Total * 100)
	}
	stats.IsOverBudget = stats.Spent > stats.Total
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
