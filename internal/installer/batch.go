package installer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtudk/dtu-env/internal/selection"
)

// Summary aggregates one batch.
type Summary struct {
	BatchID   string
	Installed int
	Failed    int
	// Skipped counts picks never started because the batch was cancelled.
	Skipped  int
	Outcomes []Outcome
}

// String renders "N installed, M failed".
func (s Summary) String() string {
	out := fmt.Sprintf("%d installed, %d failed", s.Installed, s.Failed)
	if s.Skipped > 0 {
		out += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	return out
}

// BatchHooks observe a running batch. Every field is optional.
type BatchHooks struct {
	// OnStart fires before pick i (0-based) of n begins.
	OnStart func(i, n int, p selection.Pick)
	// OnDone fires after pick i finishes.
	OnDone func(i, n int, o Outcome)
}

// Batch installs picks strictly in order, one at a time. A failed item does
// not stop the rest. Once ctx is cancelled no further item is started.
func (ins *Installer) Batch(ctx context.Context, picks []selection.Pick, hooks BatchHooks) Summary {
	sum := Summary{BatchID: uuid.NewString()}
	log := ins.logger().With("batch", sum.BatchID)
	log.Info().Int("items", len(picks)).Msg("batch started")

	for i, p := range picks {
		if ctx.Err() != nil {
			sum.Skipped = len(picks) - i
			log.Warn().Int("skipped", sum.Skipped).Msg("batch cancelled")
			break
		}
		if hooks.OnStart != nil {
			hooks.OnStart(i, len(picks), p)
		}
		o := ins.install(ctx, log, p.Env, p.Name)
		sum.Outcomes = append(sum.Outcomes, o)
		if o.OK() {
			sum.Installed++
		} else {
			sum.Failed++
		}
		if hooks.OnDone != nil {
			hooks.OnDone(i, len(picks), o)
		}
	}

	log.Info().
		Int("installed", sum.Installed).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Msg("batch finished")
	return sum
}
