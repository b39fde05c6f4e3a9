package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"flowLedger/client/models"
	"flowLedger/client/pool"
)

// ImportBatch runs every upload as its own import, at most workers at a
// time. Results come back in upload order; one file failing does not stop
// the others.
func (s *Importer) ImportBatch(ctx context.Context, kind models.ImportKind, uploads []Upload, workers int) []*Result {
	results := make([]*Result, len(uploads))
	wp := pool.NewWorkerPool(workers, s.logger)

	var mu sync.Mutex
	for i, up := range uploads {
		i, up := i, up
		wp.Submit(ctx, func(ctx context.Context) error {
			res, err := s.Import(ctx, kind, up)
			if res == nil {
				res = &Result{Kind: kind, Filename: up.Filename, Error: err.Error()}
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return err
		}, func(err error) {
			mu.Lock()
			defer mu.Unlock()
			if results[i] == nil {
				results[i] = &Result{Kind: kind, Filename: up.Filename, Error: err.Error()}
			}
		})
	}

	wp.Wait()

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	s.logger.Info("Batch import finished",
		zap.String("kind", string(kind)),
		zap.Int("files", len(uploads)),
		zap.Int("failed", failed),
	)

	return results
}
