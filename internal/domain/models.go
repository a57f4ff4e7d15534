// Package domain provides the core records exchanged between the analysis
// components. Every record is an immutable value: a component never mutates
// what an upstream step produced, it derives a new record.
package domain

import "time"

// CostCategory classifies a raw cost event.
type CostCategory string

const (
	CategoryPreventive CostCategory = "preventive"
	CategoryCorrective CostCategory = "corrective"
	CategoryParts      CostCategory = "parts"
	CategoryContract   CostCategory = "contract"
)

// CostEvent is a raw, time-stamped cost record (work order line or contract
// charge) as handed to the aggregator by the storage layer.
type CostEvent struct {
	OccurredAt    time.Time    `json:"occurred_at"`
	AssetID       string       `json:"asset_id"`
	Category      CostCategory `json:"category"`
	Amount        float64      `json:"amount"`
	DowntimeHours float64      `json:"downtime_hours"`
}

// CostObservation is one aggregation period of an asset's cost history.
// Periods are contiguous, non-overlapping and monotonically increasing.
type CostObservation struct {
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	AssetID       string    `json:"asset_id"`
	Amount        float64   `json:"amount"`
	DowntimeHours float64   `json:"downtime_hours"`
}

// CostSeries is the ordered monthly cost history of a single asset.
type CostSeries struct {
	AssetID      string            `json:"asset_id"`
	Observations []CostObservation `json:"observations"`
}

// Amounts returns the per-period amounts as a plain slice for fitting.
func (s CostSeries) Amounts() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Amount
	}
	return out
}

// Total returns the sum of all period amounts.
func (s CostSeries) Total() float64 {
	total := 0.0
	for _, o := range s.Observations {
		total += o.Amount
	}
	return total
}

// DowntimeHours returns the total recorded downtime across the series.
func (s CostSeries) DowntimeHours() float64 {
	total := 0.0
	for _, o := range s.Observations {
		total += o.DowntimeHours
	}
	return total
}

// ForecastMethod enumerates the closed set of supported forecasting methods.
type ForecastMethod string

const (
	MethodARIMA ForecastMethod = "arima"
	MethodSES   ForecastMethod = "ses"
	MethodHolt  ForecastMethod = "holt"
	MethodNaive ForecastMethod = "naive"
)

// FitMetrics holds in-sample (or holdout) error metrics for a fitted method.
type FitMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// ForecastPoint is one future period of a forecast with its uncertainty band.
type ForecastPoint struct {
	PeriodStart time.Time `json:"period_start"`
	Value       float64   `json:"value"`
	LowerBound  float64   `json:"lower_bound"`
	UpperBound  float64   `json:"upper_bound"`
}

// ForecastResult is the output of the time-series forecaster for one asset.
type ForecastResult struct {
	AssetID      string          `json:"asset_id"`
	MethodUsed   ForecastMethod  `json:"method_used"`
	HorizonCount int             `json:"horizon_count"`
	Points       []ForecastPoint `json:"points"`
	Metrics      FitMetrics      `json:"metrics"`
}

// HazardRegime classifies the Weibull shape parameter against the bathtub curve.
type HazardRegime string

const (
	RegimeInfantMortality HazardRegime = "infant_mortality" // shape < 1, decreasing hazard
	RegimeConstant        HazardRegime = "constant"         // shape ~ 1, random failures
	RegimeWearOut         HazardRegime = "wear_out"         // shape > 1, increasing hazard
)

// FailureObservation is one failure (or censoring) age for an asset, in months.
type FailureObservation struct {
	AssetID   string  `json:"asset_id"`
	AgeMonths float64 `json:"age_months"`
	Censored  bool    `json:"censored"` // still in service at AgeMonths
}

// FailureModel holds fitted two-parameter Weibull hazard parameters.
// An unfit model is represented by its absence, never by zero parameters.
type FailureModel struct {
	AssetID     string       `json:"asset_id"`
	ShapeK      float64      `json:"shape_k"`
	ScaleLambda float64      `json:"scale_lambda"` // months
	Regime      HazardRegime `json:"regime"`
	FitQuality  float64      `json:"fit_quality"` // 0..1
	SampleSize  int          `json:"sample_size"` // uncensored failures used
}

// ReliabilityEstimate is the maintenance predictor's output for one asset.
type ReliabilityEstimate struct {
	AssetID              string       `json:"asset_id"`
	MTBFMonths           float64      `json:"mtbf_months"`
	RemainingLifeMonths  float64      `json:"remaining_useful_life_months"` // clamped >= 0
	NextFailureEarliest  float64      `json:"next_failure_earliest_months"` // months from now
	NextFailureLatest    float64      `json:"next_failure_latest_months"`
	Confidence           float64      `json:"confidence"`
	Regime               HazardRegime `json:"regime"`
	CurrentAgeMonths     float64      `json:"current_age_months"`
	FailureProbabilityYr float64      `json:"failure_probability_next_year"`
}

// CashFlowItem is one period of a decision path. Negative amounts are
// outflows; positive amounts are avoided costs or salvage inflows.
type CashFlowItem struct {
	PeriodIndex float64 `json:"period_index"` // years from now; fractional periods allowed
	Amount      float64 `json:"amount"`
}

// CashFlow is an ordered sequence of periodized amounts for one decision path.
type CashFlow []CashFlowItem

// RecommendedAction is the repair-vs-replace verdict.
type RecommendedAction string

const (
	ActionRepair  RecommendedAction = "repair"
	ActionReplace RecommendedAction = "replace"
	ActionDefer   RecommendedAction = "defer"
)

// NPVDecision is the repair-vs-replace analysis output for one asset.
// Sign convention: NPVSavings = NPVReplace - NPVRepair; both path NPVs are
// typically negative (costs), so positive savings favor replacement.
type NPVDecision struct {
	AssetID          string            `json:"asset_id"`
	NPVRepair        float64           `json:"npv_repair"`
	NPVReplace       float64           `json:"npv_replace"`
	NPVSavings       float64           `json:"npv_savings"`
	Recommended      RecommendedAction `json:"recommended_action"`
	DiscountRateUsed float64           `json:"discount_rate_used"`
	ReplacementCost  float64           `json:"replacement_cost"`
}

// DepreciationMethod selects the depreciation schedule family.
type DepreciationMethod string

const (
	MethodStraightLine DepreciationMethod = "straight_line"
	MethodAccelerated  DepreciationMethod = "accelerated"
)

// DepreciationPeriod is one fiscal-year entry of a depreciation schedule.
type DepreciationPeriod struct {
	PeriodIndex  int     `json:"period_index"`
	FiscalYear   int     `json:"fiscal_year"`
	Expense      float64 `json:"depreciation_amount"`
	BookValueEnd float64 `json:"book_value_end"`
}

// DepreciationSchedule is the full schedule for one asset and method.
// BookValueEnd is monotonically non-increasing and floors at salvage value.
type DepreciationSchedule struct {
	AssetID string               `json:"asset_id"`
	Method  DepreciationMethod   `json:"method"`
	Salvage float64              `json:"salvage_value"`
	Periods []DepreciationPeriod `json:"periods"`
}

// BookValueAt returns the book value at the end of the given fiscal year.
// Years before the first scheduled period return the opening book value.
func (s DepreciationSchedule) BookValueAt(fiscalYear int) float64 {
	if len(s.Periods) == 0 {
		return 0
	}
	value := s.Periods[0].BookValueEnd + s.Periods[0].Expense
	for _, p := range s.Periods {
		if p.FiscalYear > fiscalYear {
			break
		}
		value = p.BookValueEnd
	}
	return value
}

// CumulativeExpense sums depreciation recognized through the given fiscal year.
func (s DepreciationSchedule) CumulativeExpense(fiscalYear int) float64 {
	total := 0.0
	for _, p := range s.Periods {
		if p.FiscalYear > fiscalYear {
			break
		}
		total += p.Expense
	}
	return total
}

// TCOReport aggregates lifecycle cost for one asset over a window.
type TCOReport struct {
	AssetID                string  `json:"asset_id"`
	AcquisitionCost        float64 `json:"acquisition_cost"`
	CumulativeMaintenance  float64 `json:"cumulative_maintenance"`
	CumulativeDowntimeCost float64 `json:"cumulative_downtime_cost"`
	CumulativeDepreciation float64 `json:"cumulative_depreciation"`
	Total                  float64 `json:"total"`
	AnnualizedTotal        float64 `json:"annualized_total"`
	MaintenanceRatio       float64 `json:"maintenance_to_acquisition_ratio"`
}

// ReplacementCandidate is one asset offered to the replacement optimizer.
type ReplacementCandidate struct {
	AssetID          string  `json:"asset_id"`
	PriorityScore    float64 `json:"priority_score"` // savings per dollar of cost
	EstimatedCost    float64 `json:"estimated_cost"`
	EstimatedSavings float64 `json:"estimated_savings"`
}

// BudgetConstraint bounds the optimizer: TotalBudget per period, over
// PeriodCount consecutive fiscal years.
type BudgetConstraint struct {
	TotalBudget float64 `json:"total_budget"`
	PeriodCount int     `json:"period_count"`
}

// ScheduledReplacement is one funded replacement in the plan.
type ScheduledReplacement struct {
	AssetID          string  `json:"asset_id"`
	EstimatedCost    float64 `json:"estimated_cost"`
	EstimatedSavings float64 `json:"estimated_savings"`
}

// SchedulePeriod is one fiscal year of the replacement schedule.
type SchedulePeriod struct {
	FiscalYear   int                    `json:"fiscal_year"`
	Replacements []ScheduledReplacement `json:"replacements"`
	Spend        float64                `json:"spend"`
	Savings      float64                `json:"savings"`
}

// ReplacementSchedule is the optimizer's multi-year capital plan.
// Invariant: Spend <= the period's budget for every period.
type ReplacementSchedule struct {
	Periods      []SchedulePeriod `json:"periods"`
	Deferred     []string         `json:"deferred_asset_ids"`
	TotalSpend   float64          `json:"total_spend"`
	TotalSavings float64          `json:"total_savings"`
}

// Equipment is the metadata record handed to the core by the storage layer.
type Equipment struct {
	AcquisitionDate          time.Time `json:"acquisition_date"`
	AssetID                  string    `json:"asset_id"`
	Class                    string    `json:"class"`
	Facility                 string    `json:"facility"`
	AcquisitionCost          float64   `json:"acquisition_cost"`
	ExpectedUsefulLifeMonths int       `json:"expected_useful_life_months"`
	SalvageFraction          float64   `json:"salvage_fraction"`
}

// AgeMonths returns the asset's age in months as of the given date.
func (e Equipment) AgeMonths(asOf time.Time) float64 {
	if asOf.Before(e.AcquisitionDate) {
		return 0
	}
	return asOf.Sub(e.AcquisitionDate).Hours() / 24 / 30.44
}

// AssetAnalysis bundles every per-asset result of one fleet analysis run.
// Nil sections were not computable for this asset; Err is set when the asset
// failed outright (the batch continues without it).
type AssetAnalysis struct {
	AssetID      string                `json:"asset_id"`
	Forecast     *ForecastResult       `json:"forecast,omitempty"`
	Reliability  *ReliabilityEstimate  `json:"reliability,omitempty"`
	Decision     *NPVDecision          `json:"decision,omitempty"`
	TCO          *TCOReport            `json:"tco,omitempty"`
	Depreciation *DepreciationSchedule `json:"depreciation,omitempty"`
	Err          string                `json:"error,omitempty"`
}

// AnalysisConfig is the caller-supplied configuration for one analysis run.
type AnalysisConfig struct {
	DiscountRate         float64            `json:"discount_rate"`
	HorizonMonths        int                `json:"horizon_months"`
	ProjectionYears      int                `json:"projection_years"`
	ForecastMethod       string             `json:"forecast_method"` // auto|arima|ets
	DepreciationMethod   DepreciationMethod `json:"depreciation_method"`
	BudgetPerPeriod      float64            `json:"budget_per_period"`
	BudgetPeriods        int                `json:"budget_periods"`
	MaterialityThreshold float64            `json:"materiality_threshold"` // fraction of replacement cost
	DowntimeHourlyRate   float64            `json:"downtime_hourly_rate"`
}
