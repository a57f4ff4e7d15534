// Package planning turns per-asset replacement recommendations into a
// multi-year capital plan under fiscal-year budget constraints.
package planning

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

// Optimizer allocates replacement candidates into budget periods with a
// greedy savings-per-euro heuristic. Greedy is not provably optimal for the
// underlying knapsack, but it is deterministic and fast at fleet scale.
type Optimizer struct {
	log zerolog.Logger
}

// New creates a replacement optimizer.
func New(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log.With().Str("component", "replacement_optimizer").Logger()}
}

// Plan schedules candidates into consecutive fiscal-year periods starting at
// startFiscalYear. Each candidate lands in the earliest period with budget
// left; candidates that fit nowhere are listed as deferred, never dropped.
func (o *Optimizer) Plan(candidates []domain.ReplacementCandidate, budget domain.BudgetConstraint, startFiscalYear int) (domain.ReplacementSchedule, error) {
	if budget.TotalBudget < 0 {
		return domain.ReplacementSchedule{}, fmt.Errorf("budget must be non-negative, got %g", budget.TotalBudget)
	}
	if budget.PeriodCount <= 0 {
		return domain.ReplacementSchedule{}, fmt.Errorf("period count must be positive, got %d", budget.PeriodCount)
	}
	for _, c := range candidates {
		if c.EstimatedCost <= 0 {
			return domain.ReplacementSchedule{}, fmt.Errorf("candidate %s has non-positive cost %g", c.AssetID, c.EstimatedCost)
		}
	}

	ranked := rank(candidates)

	schedule := domain.ReplacementSchedule{
		Periods: make([]domain.SchedulePeriod, budget.PeriodCount),
	}
	remaining := make([]float64, budget.PeriodCount)
	for i := range schedule.Periods {
		schedule.Periods[i].FiscalYear = startFiscalYear + i
		remaining[i] = budget.TotalBudget
	}

	for _, c := range ranked {
		placed := false
		for i := range schedule.Periods {
			if c.EstimatedCost > remaining[i] {
				continue
			}
			remaining[i] -= c.EstimatedCost
			schedule.Periods[i].Replacements = append(schedule.Periods[i].Replacements, domain.ScheduledReplacement{
				AssetID:          c.AssetID,
				EstimatedCost:    c.EstimatedCost,
				EstimatedSavings: c.EstimatedSavings,
			})
			schedule.Periods[i].Spend = domain.RoundMoney(schedule.Periods[i].Spend + c.EstimatedCost)
			schedule.Periods[i].Savings = domain.RoundMoney(schedule.Periods[i].Savings + c.EstimatedSavings)
			placed = true
			break
		}
		if !placed {
			schedule.Deferred = append(schedule.Deferred, c.AssetID)
		}
	}

	for _, p := range schedule.Periods {
		schedule.TotalSpend = domain.RoundMoney(schedule.TotalSpend + p.Spend)
		schedule.TotalSavings = domain.RoundMoney(schedule.TotalSavings + p.Savings)
	}

	o.log.Info().
		Int("candidates", len(candidates)).
		Int("deferred", len(schedule.Deferred)).
		Float64("total_spend", schedule.TotalSpend).
		Float64("total_savings", schedule.TotalSavings).
		Msg("Built replacement schedule")

	return schedule, nil
}

// Prioritize scores and orders candidates without allocating budget. Exposed
// for the fleet priorities listing.
func (o *Optimizer) Prioritize(candidates []domain.ReplacementCandidate) []domain.ReplacementCandidate {
	return rank(candidates)
}

// rank computes the savings-per-euro priority score and sorts descending.
// Ties break toward the cheaper candidate, then by asset id, so the order is
// stable across runs.
func rank(candidates []domain.ReplacementCandidate) []domain.ReplacementCandidate {
	ranked := make([]domain.ReplacementCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		if ranked[i].EstimatedCost > 0 {
			ranked[i].PriorityScore = domain.RoundRate(ranked[i].EstimatedSavings / ranked[i].EstimatedCost)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.EstimatedCost != b.EstimatedCost {
			return a.EstimatedCost < b.EstimatedCost
		}
		return a.AssetID < b.AssetID
	})
	return ranked
}
