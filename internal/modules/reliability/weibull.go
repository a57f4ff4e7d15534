// Package reliability fits Weibull hazard models to failure ages and derives
// MTBF, remaining useful life, and next-failure windows from them.
package reliability

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

const (
	// MinFailures is the smallest number of uncensored failure
	// observations a Weibull fit will accept.
	MinFailures = 3

	// Shape bracket for the profile-likelihood solve. Real equipment
	// hazards live well inside this range.
	shapeMin = 0.05
	shapeMax = 50.0

	maxIterations = 200
	tolerance     = 1e-9

	// Regime thresholds: shapes within [constantLow, constantHigh] are
	// treated as constant hazard.
	constantLow  = 0.95
	constantHigh = 1.05
)

// Modeler fits two-parameter Weibull hazard models by censoring-aware
// maximum likelihood.
type Modeler struct {
	log zerolog.Logger
}

// NewModeler creates a bathtub curve modeler.
func NewModeler(log zerolog.Logger) *Modeler {
	return &Modeler{log: log.With().Str("component", "bathtub_modeler").Logger()}
}

// Fit estimates shape and scale from observed ages-at-failure and
// ages-at-censoring. Censored observations (assets still in service)
// contribute exposure but not failure events.
func (m *Modeler) Fit(assetID string, obs []domain.FailureObservation) (domain.FailureModel, error) {
	var failures, all []float64
	for _, o := range obs {
		if o.AgeMonths <= 0 {
			return domain.FailureModel{}, &domain.InvalidFailureDataError{
				AssetID: assetID,
				Reason:  "ages must be positive",
			}
		}
		all = append(all, o.AgeMonths)
		if !o.Censored {
			failures = append(failures, o.AgeMonths)
		}
	}

	if len(failures) < MinFailures {
		return domain.FailureModel{}, &domain.InsufficientFailureDataError{
			AssetID:  assetID,
			Observed: len(failures),
			Required: MinFailures,
		}
	}

	if allIdentical(failures) && len(all) == len(failures) {
		return domain.FailureModel{}, &domain.InvalidFailureDataError{
			AssetID: assetID,
			Reason:  "all failure ages are identical, spread is required for a fit",
		}
	}

	shape, err := solveShape(failures, all)
	if err != nil {
		return domain.FailureModel{}, err
	}
	scale := scaleFor(shape, failures, all)

	model := domain.FailureModel{
		AssetID:     assetID,
		ShapeK:      shape,
		ScaleLambda: scale,
		Regime:      classifyRegime(shape),
		FitQuality:  fitQuality(failures, shape, scale),
		SampleSize:  len(failures),
	}

	m.log.Debug().
		Str("asset_id", assetID).
		Float64("shape_k", model.ShapeK).
		Float64("scale_lambda", model.ScaleLambda).
		Str("regime", string(model.Regime)).
		Int("failures", len(failures)).
		Int("censored", len(all)-len(failures)).
		Msg("Fitted Weibull failure model")

	return model, nil
}

// solveShape solves the profile-likelihood equation for the shape parameter
// by bisection. The profile g(k) is strictly increasing in k, so a sign
// change over the bracket guarantees a unique root.
func solveShape(failures, all []float64) (float64, error) {
	g := func(k float64) float64 {
		var sumTk, sumTkLn float64
		for _, t := range all {
			tk := math.Pow(t, k)
			sumTk += tk
			sumTkLn += tk * math.Log(t)
		}
		var sumLnFail float64
		for _, t := range failures {
			sumLnFail += math.Log(t)
		}
		return sumTkLn/sumTk - 1/k - sumLnFail/float64(len(failures))
	}

	lo, hi := shapeMin, shapeMax
	gLo, gHi := g(lo), g(hi)
	if math.IsNaN(gLo) || math.IsNaN(gHi) || gLo*gHi > 0 {
		return 0, &domain.NoConvergenceError{
			Method:     "weibull profile likelihood",
			Iterations: 0,
			LowerBound: shapeMin,
			UpperBound: shapeMax,
		}
	}

	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		gMid := g(mid)
		if math.Abs(gMid) < tolerance || (hi-lo)/2 < tolerance {
			return mid, nil
		}
		if gLo*gMid < 0 {
			hi = mid
		} else {
			lo = mid
			gLo = gMid
		}
	}

	return 0, &domain.NoConvergenceError{
		Method:     "weibull profile likelihood",
		Iterations: maxIterations,
		LowerBound: shapeMin,
		UpperBound: shapeMax,
	}
}

// scaleFor is the closed-form MLE of the scale parameter given the shape:
// lambda^k = sum(t_j^k) / n_failures, censored observations included in the
// numerator as exposure.
func scaleFor(shape float64, failures, all []float64) float64 {
	var sumTk float64
	for _, t := range all {
		sumTk += math.Pow(t, shape)
	}
	return math.Pow(sumTk/float64(len(failures)), 1/shape)
}

func classifyRegime(shape float64) domain.HazardRegime {
	switch {
	case shape < constantLow:
		return domain.RegimeInfantMortality
	case shape > constantHigh:
		return domain.RegimeWearOut
	default:
		return domain.RegimeConstant
	}
}

// fitQuality measures how well the fitted CDF tracks the empirical CDF of
// the uncensored failures (median ranks), as an R-squared clamped to [0, 1].
func fitQuality(failures []float64, shape, scale float64) float64 {
	sorted := make([]float64, len(failures))
	copy(sorted, failures)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	var sse, sst, meanEmp float64
	empirical := make([]float64, len(sorted))
	for i := range sorted {
		empirical[i] = (float64(i+1) - 0.3) / (n + 0.4)
		meanEmp += empirical[i]
	}
	meanEmp /= n

	for i, t := range sorted {
		predicted := 1 - math.Exp(-math.Pow(t/scale, shape))
		sse += (empirical[i] - predicted) * (empirical[i] - predicted)
		sst += (empirical[i] - meanEmp) * (empirical[i] - meanEmp)
	}
	if sst == 0 {
		return 0
	}
	r2 := 1 - sse/sst
	if r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return domain.RoundRate(r2)
}

func allIdentical(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
