package main

import (
	"context"

	"github.com/redlabs-sc/customer-intake/app/intake"
	"github.com/redlabs-sc/customer-intake/app/journal"
	"github.com/redlabs-sc/customer-intake/app/trail"
)

// outcomeRecorder fans each terminal outcome out to the SQLite journal and
// the JSON processing trail.
type outcomeRecorder struct {
	journal *journal.Journal
	trail   *trail.LogManager
}

func (r *outcomeRecorder) RecordOutcome(ctx context.Context, o intake.Outcome) {
	r.journal.RecordOutcome(ctx, o)
	r.trail.LogOutcome(o.FileName, o.Structure, o.Status, o.Detail, o.Duration)
}
