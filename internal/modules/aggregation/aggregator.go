// Package aggregation collapses raw time-stamped cost events into monthly
// per-asset cost series. It is the leaf of the analysis pipeline: everything
// downstream consumes its output.
package aggregation

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/domain"
)

// Window bounds an aggregation request. A zero Start or End is derived from
// the first/last event so callers can aggregate "everything we have".
type Window struct {
	Start time.Time
	End   time.Time
}

// Aggregator buckets cost events into calendar-month periods with explicit
// zero-fill: every month in the window gets a row even when the asset had no
// cost in it. Aggregation is idempotent - the same events always produce
// byte-identical output.
type Aggregator struct {
	cal domain.FiscalCalendar
	log zerolog.Logger
}

// New creates an aggregator anchored to the given fiscal month.
func New(fiscalAnchorMonth int, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		cal: domain.NewFiscalCalendar(fiscalAnchorMonth),
		log: log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate builds the monthly cost series for one asset. Events outside the
// window are ignored. Returns EmptyHistoryError when no event falls inside
// the window.
func (a *Aggregator) Aggregate(assetID string, events []domain.CostEvent, window Window) (domain.CostSeries, error) {
	inWindow := make([]domain.CostEvent, 0, len(events))
	for _, ev := range events {
		if ev.AssetID != assetID {
			continue
		}
		if !window.Start.IsZero() && ev.OccurredAt.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && !ev.OccurredAt.Before(window.End) {
			continue
		}
		inWindow = append(inWindow, ev)
	}

	if len(inWindow) == 0 {
		return domain.CostSeries{}, &domain.EmptyHistoryError{AssetID: assetID}
	}

	// Deterministic order regardless of input order: timestamp, then
	// category, then amount. This is what makes aggregation idempotent.
	sort.Slice(inWindow, func(i, j int) bool {
		if !inWindow[i].OccurredAt.Equal(inWindow[j].OccurredAt) {
			return inWindow[i].OccurredAt.Before(inWindow[j].OccurredAt)
		}
		if inWindow[i].Category != inWindow[j].Category {
			return inWindow[i].Category < inWindow[j].Category
		}
		return inWindow[i].Amount < inWindow[j].Amount
	})

	start := monthStart(inWindow[0].OccurredAt)
	if !window.Start.IsZero() {
		start = monthStart(window.Start)
	}
	end := monthStart(inWindow[len(inWindow)-1].OccurredAt)
	if !window.End.IsZero() {
		// End is exclusive; the last bucket is the month containing End-1ns.
		end = monthStart(window.End.Add(-time.Nanosecond))
	}

	type bucket struct {
		amount   float64
		downtime float64
	}
	buckets := make(map[time.Time]bucket)
	for _, ev := range inWindow {
		key := monthStart(ev.OccurredAt)
		b := buckets[key]
		b.amount += ev.Amount
		b.downtime += ev.DowntimeHours
		buckets[key] = b
	}

	series := domain.CostSeries{AssetID: assetID}
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		b := buckets[cur]
		series.Observations = append(series.Observations, domain.CostObservation{
			AssetID:       assetID,
			PeriodStart:   cur,
			PeriodEnd:     cur.AddDate(0, 1, 0),
			Amount:        domain.RoundMoney(b.amount),
			DowntimeHours: b.downtime,
		})
	}

	a.log.Debug().
		Str("asset_id", assetID).
		Int("events", len(inWindow)).
		Int("periods", len(series.Observations)).
		Msg("Aggregated cost events")

	return series, nil
}

// FiscalYearTotals sums a cost series by fiscal year, respecting the
// aggregator's anchor month.
func (a *Aggregator) FiscalYearTotals(series domain.CostSeries) map[int]float64 {
	totals := make(map[int]float64)
	for _, obs := range series.Observations {
		fy := a.cal.YearOf(obs.PeriodStart)
		totals[fy] = domain.RoundMoney(totals[fy] + obs.Amount)
	}
	return totals
}

// Calendar exposes the fiscal calendar the aggregator was built with.
func (a *Aggregator) Calendar() domain.FiscalCalendar {
	return a.cal
}

func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
