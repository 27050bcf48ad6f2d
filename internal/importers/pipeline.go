package importers

import (
	"context"
	"errors"

	"github.com/mrlokans/shelfport/internal/dedupe"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Options tune reconciliation.
type Options struct {
	// FuzzyThreshold is the similarity at which two books without a shared
	// ISBN are treated as the same. Defaults to dedupe.DefaultThreshold.
	FuzzyThreshold float64
}

// Pipeline runs imports against a Store. It holds no mutable state and may
// be shared between goroutines; isolation between concurrent imports is
// provided by the store's transaction.
type Pipeline struct {
	store    Store
	validate *recordValidator
	opts     Options
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(store Store, opts Options) *Pipeline {
	if opts.FuzzyThreshold <= 0 || opts.FuzzyThreshold > 1 {
		opts.FuzzyThreshold = dedupe.DefaultThreshold
	}
	return &Pipeline{store: store, validate: newRecordValidator(), opts: opts}
}

// Import validates, reconciles and persists a snapshot for an owner.
//
// Per-record problems are reported in the summary and never fail the call.
// A returned error means nothing was written; the summary then carries the
// phase in which the import stopped.
//
// The context is checked before Persisting starts. Once the store
// transaction has begun the import runs to commit or rollback.
func (p *Pipeline) Import(ctx context.Context, ownerID uint, s snapshot.Snapshot) (snapshot.ImportSummary, error) {
	return p.run(ctx, ownerID, s, false)
}

// DryRun runs Validating and Reconciling only. The summary reports what
// Import would do against the current store state.
func (p *Pipeline) DryRun(ctx context.Context, ownerID uint, s snapshot.Snapshot) (snapshot.ImportSummary, error) {
	return p.run(ctx, ownerID, s, true)
}

func (p *Pipeline) run(ctx context.Context, ownerID uint, s snapshot.Snapshot, dryRun bool) (snapshot.ImportSummary, error) {
	summary := snapshot.NewImportSummary()
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	state, err := p.store.LoadState(ctx, ownerID)
	if err != nil {
		return summary, asPersistenceError(err, "load library")
	}

	valid := p.validateSnapshot(s.Normalized(), state, &summary)

	summary.Phase = snapshot.PhaseReconciling
	plan := newReconciler(state, p.opts.FuzzyThreshold, &summary).run(valid)
	plan.Source = s.Metadata.FormatTag

	if dryRun {
		summary.Phase = snapshot.PhaseDryRun
		summary.Success = true
		return summary, nil
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	summary.Phase = snapshot.PhasePersisting
	if plan.Len() > 0 {
		// Not cancellable from here on.
		if err := p.store.Apply(context.WithoutCancel(ctx), ownerID, plan); err != nil {
			failed := snapshot.NewImportSummary()
			failed.Phase = snapshot.PhaseRolledBack
			failed.Errors = summary.Errors
			return failed, asPersistenceError(err, "apply import")
		}
	}

	summary.Phase = snapshot.PhaseCommitted
	summary.Success = true
	return summary, nil
}

// asPersistenceError keeps pipeline errors as they are and classifies any
// other store error as a persistence failure.
func asPersistenceError(err error, op string) error {
	var pe *snapshot.Error
	if errors.As(err, &pe) {
		return err
	}
	return snapshot.WrapError(snapshot.KindPersistenceFailure, err, "%s", op)
}
