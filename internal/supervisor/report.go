package supervisor

import (
	"context"
	"time"

	"github.com/turtacn/Rover/pkg/consts"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/protocol"
)

// CycleReport describes what happened in one RunCycle call.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Decision   Decision
	Outcome    string
	Err        error
	// Repeat marks an idle or held cycle identical to the previous one.
	Repeat bool
}

// Quiet reports whether the cycle carries nothing worth journaling: a plain
// idle with nothing commanded, or a repeat of the previous cycle.
func (r CycleReport) Quiet() bool {
	return r.Repeat || (r.Outcome == consts.OutcomeIdle && r.Err == nil)
}

func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record converts the report into its journaled wire form.
func (r CycleReport) Record() protocol.CycleRecord {
	rec := protocol.CycleRecord{
		ID:         r.ID,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		Mode:       string(r.Decision.Mode),
		Mission:    string(r.Decision.Mission),
		Decision:   r.Decision.Kind.String(),
		Unit:       r.Decision.UnitName(),
		Outcome:    r.Outcome,
	}
	if r.Err != nil {
		rec.ErrorCode = int(errors.CodeOf(r.Err))
		rec.Error = r.Err.Error()
	}
	return rec
}

// Reporter is the observability channel failures and outcomes are surfaced
// through. Report must not block the control loop for long.
type Reporter interface {
	Report(ctx context.Context, r CycleReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r CycleReport)

func (f ReporterFunc) Report(ctx context.Context, r CycleReport) { f(ctx, r) }

// MultiReporter fans a report out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, r CycleReport) {
	for _, rep := range m {
		if rep != nil {
			rep.Report(ctx, r)
		}
	}
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, CycleReport) {}

// Personal.AI order the ending
