// Package financial holds the money-math components: the repair-vs-replace
// NPV analyzer, the depreciation engine, and the TCO calculator. Everything
// here is pure: inputs in, rounded records out, no I/O.
package financial

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

// Escalation constants for the decision paths. These are planning
// assumptions, not fitted parameters: repairs on aging equipment get more
// expensive faster than maintenance on new equipment.
const (
	repairEscalationRate     = 0.08
	newMaintenanceCostRatio  = 0.03
	newMaintenanceEscalation = 0.02

	irrLowerBound    = -0.99
	irrUpperBound    = 10.0
	irrScanSteps     = 220
	irrMaxIterations = 200
	irrTolerance     = 1e-7
)

// NPV discounts a cash flow at the given annual rate. Period indices are
// years from now and may be fractional (mid-year flows discount correctly).
func NPV(flows domain.CashFlow, rate float64) float64 {
	total := 0.0
	for _, f := range flows {
		total += f.Amount / math.Pow(1+rate, f.PeriodIndex)
	}
	return total
}

// IRR finds the discount rate at which the cash flow's NPV is zero. It scans
// for a sign change across the rate range, then bisects. Flows without a
// sign change (all inflows or all outflows) have no IRR.
func IRR(flows domain.CashFlow) (float64, error) {
	step := (irrUpperBound - irrLowerBound) / irrScanSteps
	lo := irrLowerBound
	vLo := NPV(flows, lo)
	hi := lo
	found := false
	for i := 1; i <= irrScanSteps; i++ {
		hi = irrLowerBound + float64(i)*step
		vHi := NPV(flows, hi)
		if vLo == 0 {
			return domain.RoundRate(lo), nil
		}
		if vLo*vHi <= 0 {
			found = true
			break
		}
		lo, vLo = hi, vHi
	}
	if !found {
		return 0, &domain.NoConvergenceError{
			Method:     "irr sign-change scan",
			Iterations: irrScanSteps,
			LowerBound: irrLowerBound,
			UpperBound: irrUpperBound,
		}
	}

	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		vMid := NPV(flows, mid)
		if math.Abs(vMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return domain.RoundRate(mid), nil
		}
		if vLo*vMid < 0 {
			hi = mid
		} else {
			lo, vLo = mid, vMid
		}
	}
	return 0, &domain.NoConvergenceError{
		Method:     "irr bisection",
		Iterations: irrMaxIterations,
		LowerBound: lo,
		UpperBound: hi,
	}
}

// RepairCashFlow builds the keep-and-repair path: the current annual
// maintenance cost escalating each year over the projection horizon. All
// amounts are outflows.
func RepairCashFlow(annualMaintenance float64, projectionYears int) domain.CashFlow {
	flows := make(domain.CashFlow, 0, projectionYears)
	cost := annualMaintenance
	for year := 1; year <= projectionYears; year++ {
		flows = append(flows, domain.CashFlowItem{
			PeriodIndex: float64(year),
			Amount:      -cost,
		})
		cost *= 1 + repairEscalationRate
	}
	return flows
}

// ReplacementCashFlow builds the replace-now path: the net investment at
// period zero (replacement cost less any remaining book value recovered on
// disposal) plus new-equipment maintenance escalating modestly.
func ReplacementCashFlow(replacementCost, bookValue float64, projectionYears int) domain.CashFlow {
	netInvestment := replacementCost - math.Max(bookValue, 0)
	flows := make(domain.CashFlow, 0, projectionYears+1)
	flows = append(flows, domain.CashFlowItem{PeriodIndex: 0, Amount: -netInvestment})

	cost := replacementCost * newMaintenanceCostRatio
	for year := 1; year <= projectionYears; year++ {
		flows = append(flows, domain.CashFlowItem{
			PeriodIndex: float64(year),
			Amount:      -cost,
		})
		cost *= 1 + newMaintenanceEscalation
	}
	return flows
}

// DecisionInput carries everything the analyzer needs for one asset.
type DecisionInput struct {
	AssetID              string
	AnnualMaintenance    float64 // current annual maintenance cost
	ReplacementCost      float64
	BookValue            float64 // recovered on disposal when positive
	ProjectionYears      int
	DiscountRate         float64
	MaterialityThreshold float64 // fraction of replacement cost
}

// Analyzer compares the repair path against the replacement path.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates an NPV analyzer.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: log.With().Str("component", "npv_analyzer").Logger()}
}

// Compare discounts both decision paths and recommends an action. Savings
// are NPVReplace - NPVRepair: both paths are cost streams (negative NPVs),
// so positive savings mean replacing is the cheaper path.
func (a *Analyzer) Compare(in DecisionInput) (domain.NPVDecision, error) {
	if in.ProjectionYears <= 0 {
		return domain.NPVDecision{}, fmt.Errorf("projection years must be positive, got %d", in.ProjectionYears)
	}
	if in.DiscountRate <= -1 {
		return domain.NPVDecision{}, fmt.Errorf("discount rate must be greater than -1, got %g", in.DiscountRate)
	}
	if in.ReplacementCost <= 0 {
		return domain.NPVDecision{}, fmt.Errorf("replacement cost must be positive, got %g", in.ReplacementCost)
	}

	npvRepair := NPV(RepairCashFlow(in.AnnualMaintenance, in.ProjectionYears), in.DiscountRate)
	npvReplace := NPV(ReplacementCashFlow(in.ReplacementCost, in.BookValue, in.ProjectionYears), in.DiscountRate)
	savings := npvReplace - npvRepair

	decision := domain.NPVDecision{
		AssetID:          in.AssetID,
		NPVRepair:        domain.RoundMoney(npvRepair),
		NPVReplace:       domain.RoundMoney(npvReplace),
		NPVSavings:       domain.RoundMoney(savings),
		Recommended:      recommend(savings, in.ReplacementCost, in.MaterialityThreshold),
		DiscountRateUsed: in.DiscountRate,
		ReplacementCost:  in.ReplacementCost,
	}

	a.log.Debug().
		Str("asset_id", in.AssetID).
		Float64("npv_repair", decision.NPVRepair).
		Float64("npv_replace", decision.NPVReplace).
		Float64("npv_savings", decision.NPVSavings).
		Str("recommended", string(decision.Recommended)).
		Msg("Compared repair vs replace")

	return decision, nil
}

// recommend applies the materiality rule: savings must clear a fraction of
// the replacement cost before committing capital now; smaller positive
// savings defer the replacement into planning; otherwise keep repairing.
func recommend(savings, replacementCost, threshold float64) domain.RecommendedAction {
	switch {
	case savings > replacementCost*threshold:
		return domain.ActionReplace
	case savings > 0:
		return domain.ActionDefer
	default:
		return domain.ActionRepair
	}
}
