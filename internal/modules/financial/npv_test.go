package financial

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/domain"
)

func TestNPV_DiscountsOverPeriodIndices(t *testing.T) {
	flows := domain.CashFlow{
		{PeriodIndex: 1, Amount: -1000},
		{PeriodIndex: 2, Amount: -1000},
		{PeriodIndex: 3, Amount: -1000},
	}

	assert.InDelta(t, -2486.85, NPV(flows, 0.10), 0.01)
}

func TestNPV_SupportsFractionalPeriods(t *testing.T) {
	flows := domain.CashFlow{{PeriodIndex: 0.5, Amount: -100}}

	// 1.21^0.5 = 1.1
	assert.InDelta(t, -90.91, NPV(flows, 0.21), 0.01)
}

func TestNPV_AntiSymmetry(t *testing.T) {
	flows := domain.CashFlow{
		{PeriodIndex: 0, Amount: -5000},
		{PeriodIndex: 1.5, Amount: 1200},
		{PeriodIndex: 3, Amount: 4800},
	}
	mirrored := make(domain.CashFlow, len(flows))
	for i, f := range flows {
		mirrored[i] = domain.CashFlowItem{PeriodIndex: f.PeriodIndex, Amount: -f.Amount}
	}

	assert.InDelta(t, -NPV(flows, 0.08), NPV(mirrored, 0.08), 1e-9)
}

func TestIRR_RecoversBreakEvenRate(t *testing.T) {
	flows := domain.CashFlow{
		{PeriodIndex: 0, Amount: -1000},
		{PeriodIndex: 1, Amount: 500},
		{PeriodIndex: 2, Amount: 500},
		{PeriodIndex: 3, Amount: 500},
	}

	rate, err := IRR(flows)
	require.NoError(t, err)

	assert.InDelta(t, 0.2338, rate, 0.0001)
	assert.InDelta(t, 0, NPV(flows, rate), 1.0)
}

func TestIRR_NoSignChange(t *testing.T) {
	flows := domain.CashFlow{
		{PeriodIndex: 0, Amount: -1000},
		{PeriodIndex: 1, Amount: -500},
	}

	_, err := IRR(flows)

	var noConv *domain.NoConvergenceError
	require.ErrorAs(t, err, &noConv)
	assert.Equal(t, -0.99, noConv.LowerBound)
	assert.Equal(t, 10.0, noConv.UpperBound)
}

func TestCompare_CheapRepairsBeatExpensiveReplacement(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())

	// Modest repairs on a machine that would cost far more to replace.
	decision, err := a.Compare(DecisionInput{
		AssetID:              "press-1",
		AnnualMaintenance:    5000,
		ReplacementCost:      80000,
		BookValue:            0,
		ProjectionYears:      5,
		DiscountRate:         0.08,
		MaterialityThreshold: 0.10,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionRepair, decision.Recommended)
	assert.InDelta(t, -23148.15, decision.NPVRepair, 0.01)
	assert.InDelta(t, -89943.25, decision.NPVReplace, 0.01)
	assert.InDelta(t, -66795.10, decision.NPVSavings, 0.01)
	assert.Less(t, decision.NPVSavings, 0.0)
}

func TestCompare_RunawayMaintenanceTriggersReplacement(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())

	decision, err := a.Compare(DecisionInput{
		AssetID:              "press-2",
		AnnualMaintenance:    30000,
		ReplacementCost:      90000,
		BookValue:            10000,
		ProjectionYears:      5,
		DiscountRate:         0.08,
		MaterialityThreshold: 0.10,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionReplace, decision.Recommended)
	assert.InDelta(t, 47702.74, decision.NPVSavings, 0.01)
	assert.Greater(t, decision.NPVSavings, 0.10*decision.ReplacementCost)
}

func TestCompare_MarginalSavingsDefer(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())

	// Savings positive but under 10% of the replacement cost.
	decision, err := a.Compare(DecisionInput{
		AssetID:              "press-3",
		AnnualMaintenance:    21000,
		ReplacementCost:      90000,
		BookValue:            10000,
		ProjectionYears:      5,
		DiscountRate:         0.08,
		MaterialityThreshold: 0.10,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionDefer, decision.Recommended)
	assert.Greater(t, decision.NPVSavings, 0.0)
	assert.LessOrEqual(t, decision.NPVSavings, 0.10*decision.ReplacementCost)
}

func TestCompare_SavingsIsReplaceMinusRepair(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())

	decision, err := a.Compare(DecisionInput{
		AssetID:              "press-4",
		AnnualMaintenance:    12000,
		ReplacementCost:      60000,
		ProjectionYears:      3,
		DiscountRate:         0.08,
		MaterialityThreshold: 0.10,
	})
	require.NoError(t, err)

	assert.InDelta(t, decision.NPVReplace-decision.NPVRepair, decision.NPVSavings, 0.01)
}

func TestCompare_RejectsBadInputs(t *testing.T) {
	a := NewAnalyzer(zerolog.Nop())

	cases := []DecisionInput{
		{AssetID: "x", AnnualMaintenance: 1000, ReplacementCost: 5000, ProjectionYears: 0, DiscountRate: 0.08},
		{AssetID: "x", AnnualMaintenance: 1000, ReplacementCost: 5000, ProjectionYears: 5, DiscountRate: -1},
		{AssetID: "x", AnnualMaintenance: 1000, ReplacementCost: 0, ProjectionYears: 5, DiscountRate: 0.08},
	}
	for _, in := range cases {
		_, err := a.Compare(in)
		assert.Error(t, err)
	}
}

func TestReplacementCashFlow_NegativeBookValueIgnored(t *testing.T) {
	flows := ReplacementCashFlow(50000, -8000, 3)

	// Nothing is recovered on disposal of a worthless asset.
	require.NotEmpty(t, flows)
	assert.Equal(t, 0.0, flows[0].PeriodIndex)
	assert.Equal(t, -50000.0, flows[0].Amount)
}

func TestRepairCashFlow_EscalatesAnnually(t *testing.T) {
	flows := RepairCashFlow(1000, 3)

	require.Len(t, flows, 3)
	assert.Equal(t, -1000.0, flows[0].Amount)
	assert.InDelta(t, -1080.0, flows[1].Amount, 1e-9)
	assert.InDelta(t, -1166.4, flows[2].Amount, 1e-9)
}
