package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"mediguard/vitals"
)

// defaultBatchParallelism bounds concurrent scoring when the caller does
// not pick a limit.
const defaultBatchParallelism = 4

// BatchItem is the outcome for one vector of a batch, in input order.
// Validation failures are carried per item rather than failing the batch.
type BatchItem struct {
	Index  int     `json:"index"`
	Report *Report `json:"report,omitempty"`
	Err    error   `json:"-"`
}

// AnalyzeBatch scores many vectors with bounded parallelism, preserving
// input order in the result. Only ctx cancellation aborts the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, vectors []vitals.FeatureVector, parallelism int) ([]BatchItem, error) {
	if parallelism <= 0 {
		parallelism = defaultBatchParallelism
	}

	items := make([]BatchItem, len(vectors))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for i, vector := range vectors {
		i, vector := i, vector
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := a.Analyze(vector)
			if err != nil {
				items[i] = BatchItem{Index: i, Err: err}
				return nil
			}
			items[i] = BatchItem{Index: i, Report: &report}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
