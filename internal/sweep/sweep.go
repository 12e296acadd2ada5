// Package sweep finds stored blobs that no record points at.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"exportdocs-backend/internal/shared/metrics"
	"exportdocs-backend/internal/shared/storage/blob"
	"exportdocs-backend/internal/shared/telemetry"
)

// Report summarizes one sweep.
type Report struct {
	Stored     int
	Referenced int
	Orphans    []string
	Deleted    int
	Failed     int
}

type Sweeper struct {
	Store blob.Store
	Refs  []blob.Referencer
}

func New(store blob.Store, refs ...blob.Referencer) *Sweeper {
	return &Sweeper{Store: store, Refs: refs}
}

// Run lists stored and referenced ids concurrently and reports the
// difference. With remove set, orphans are deleted; a failed delete is
// logged and counted but does not stop the sweep.
func (s *Sweeper) Run(ctx context.Context, remove bool) (Report, error) {
	var (
		mu         sync.Mutex
		stored     []string
		referenced = map[string]struct{}{}
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var ids []string
		err := s.Store.List(gctx, func(fileID string) error {
			ids = append(ids, fileID)
			return nil
		})
		if err != nil {
			return fmt.Errorf("list blobs: %w", err)
		}
		mu.Lock()
		stored = ids
		mu.Unlock()
		return nil
	})
	for i, ref := range s.Refs {
		eg.Go(func() error {
			ids, err := ref.ListFileIDs(gctx)
			if err != nil {
				return fmt.Errorf("list references %d: %w", i, err)
			}
			mu.Lock()
			for _, id := range ids {
				referenced[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Stored: len(stored), Referenced: len(referenced)}
	for _, id := range stored {
		if _, ok := referenced[id]; !ok {
			report.Orphans = append(report.Orphans, id)
		}
	}
	sort.Strings(report.Orphans)

	if remove {
		for _, id := range report.Orphans {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := s.Store.Delete(ctx, id); err != nil {
				report.Failed++
				metrics.IncBlobDeleteFailed()
				telemetry.Warn("blob.delete_failed", map[string]any{
					"file_id": id,
					"error":   err.Error(),
				})
				continue
			}
			report.Deleted++
		}
	}

	telemetry.Info("sweep.complete", map[string]any{
		"stored":     report.Stored,
		"referenced": report.Referenced,
		"orphans":    len(report.Orphans),
		"deleted":    report.Deleted,
		"failed":     report.Failed,
		"remove":     remove,
	})
	return report, nil
}
