package reliability

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fleetops/fleetcast/internal/domain"
)

// Conditional quantiles that bound the next-failure window.
const (
	windowEarlyQuantile = 0.10
	windowLateQuantile  = 0.90
)

// Predictor turns a fitted failure model into maintenance-facing estimates:
// MTBF, remaining useful life at the asset's current age, and a window in
// which the next failure is likely to land.
type Predictor struct {
	log zerolog.Logger
}

// NewPredictor creates a maintenance predictor.
func NewPredictor(log zerolog.Logger) *Predictor {
	return &Predictor{log: log.With().Str("component", "maintenance_predictor").Logger()}
}

// Estimate evaluates the model at the asset's current age. All outputs are in
// months. RemainingLifeMonths is the mean residual life conditioned on having
// survived to currentAgeMonths, clamped at zero.
func (p *Predictor) Estimate(model domain.FailureModel, currentAgeMonths float64) (domain.ReliabilityEstimate, error) {
	if model.ShapeK <= 0 || model.ScaleLambda <= 0 {
		return domain.ReliabilityEstimate{}, &domain.InvalidFailureDataError{
			AssetID: model.AssetID,
			Reason:  "failure model parameters must be positive",
		}
	}
	if currentAgeMonths < 0 {
		currentAgeMonths = 0
	}

	w := distuv.Weibull{K: model.ShapeK, Lambda: model.ScaleLambda}

	rul := meanResidualLife(w, currentAgeMonths)
	if rul < 0 {
		rul = 0
	}

	earliest := conditionalQuantile(model, currentAgeMonths, windowEarlyQuantile)
	latest := conditionalQuantile(model, currentAgeMonths, windowLateQuantile)

	est := domain.ReliabilityEstimate{
		AssetID:              model.AssetID,
		MTBFMonths:           domain.RoundRate(w.Mean()),
		RemainingLifeMonths:  domain.RoundRate(rul),
		NextFailureEarliest:  domain.RoundRate(earliest),
		NextFailureLatest:    domain.RoundRate(latest),
		Confidence:           confidence(model),
		Regime:               model.Regime,
		CurrentAgeMonths:     currentAgeMonths,
		FailureProbabilityYr: domain.RoundRate(conditionalFailureProbability(w, currentAgeMonths, 12)),
	}

	p.log.Debug().
		Str("asset_id", model.AssetID).
		Float64("mtbf_months", est.MTBFMonths).
		Float64("rul_months", est.RemainingLifeMonths).
		Float64("current_age_months", currentAgeMonths).
		Msg("Computed reliability estimate")

	return est, nil
}

// meanResidualLife integrates the conditional survival function
// S(t+x)/S(t) over x by the trapezoid rule. The integrand decays
// exponentially, so integration stops once the tail is negligible.
func meanResidualLife(w distuv.Weibull, age float64) float64 {
	sAge := w.Survival(age)
	if sAge <= 0 {
		// Survival underflows for ages far past the scale; the
		// conditional distribution has all but vanished.
		return 0
	}

	step := w.Lambda / 200
	if step <= 0 {
		return 0
	}
	limit := age + 20*w.Lambda

	var sum float64
	prev := 1.0 // S(age)/S(age)
	for x := age + step; x <= limit; x += step {
		cur := w.Survival(x) / sAge
		sum += (prev + cur) / 2 * step
		if cur < 1e-9 {
			break
		}
		prev = cur
	}
	return sum
}

// conditionalQuantile returns the number of months from now until the
// conditional CDF given survival to age reaches q. For a Weibull this has a
// closed form: t+x = lambda * ((t/lambda)^k - ln(1-q))^(1/k).
func conditionalQuantile(model domain.FailureModel, age, q float64) float64 {
	k, lambda := model.ShapeK, model.ScaleLambda
	total := lambda * math.Pow(math.Pow(age/lambda, k)-math.Log(1-q), 1/k)
	x := total - age
	if x < 0 {
		return 0
	}
	return x
}

// conditionalFailureProbability is P(fail within horizon | survived to age).
func conditionalFailureProbability(w distuv.Weibull, age, horizonMonths float64) float64 {
	sAge := w.Survival(age)
	if sAge <= 0 {
		return 1
	}
	p := 1 - w.Survival(age+horizonMonths)/sAge
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// confidence blends fit quality with sample size: small samples drag the
// score down even when the in-sample fit is tight.
func confidence(model domain.FailureModel) float64 {
	n := float64(model.SampleSize)
	return domain.RoundRate(model.FitQuality * (n / (n + 5)))
}
