package analysis

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/fleetops/fleetcast/internal/domain"
)

// fingerprint identifies a run by its inputs: same config, date, and asset
// data hash to the same key, so a cached result can stand in for a re-run.
func fingerprint(cfg domain.AnalysisConfig, asOf time.Time, inputs []AssetInput) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%+v|%d", cfg, asOf.Unix())
	for _, in := range inputs {
		fmt.Fprintf(h, "|%s:%d:%d:%g:%g",
			in.Equipment.AssetID,
			len(in.CostEvents),
			len(in.Failures),
			in.ReplacementCost,
			in.AnnualMaintenance,
		)
		for _, e := range in.CostEvents {
			fmt.Fprintf(h, ";%d:%g", e.OccurredAt.Unix(), e.Amount)
		}
		for _, f := range in.Failures {
			fmt.Fprintf(h, ";%g:%t", f.AgeMonths, f.Censored)
		}
	}
	return fmt.Sprintf("fleet:%x", h.Sum64())
}
