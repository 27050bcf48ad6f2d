// Package importers applies a decoded snapshot to an owner's library.
//
// # Architecture
//
// An import moves through a fixed sequence of phases:
//
//	Validating → Reconciling → Persisting → Committed | RolledBack
//
// Validating checks every record on its own and against the records it
// references. Invalid records are reported in the summary and excluded; they
// never abort the batch.
//
// Reconciling decides, record by record, whether the store already holds the
// entity. Books are matched through the dedupe package and combined with
// merge; owned books are unique per (owner, book), wishlist entries per
// (owner, book) and collections per (owner, name). The outcome is a Plan:
// an ordered list of creates and updates whose cross references are Refs.
//
// Persisting hands the Plan to Store.Apply, which must apply it inside a
// single transaction. Any failure leaves the store untouched.
//
// # Example Usage
//
//	pipeline := importers.NewPipeline(store, importers.Options{})
//
//	snap, err := formats.DefaultRegistry().Decode(data, snapshot.FormatGoodreads)
//	if err != nil {
//		return err
//	}
//	summary, err := pipeline.Import(ctx, ownerID, snap)
//
// Pipeline.DryRun runs Validating and Reconciling only.
package importers
