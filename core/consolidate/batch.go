package consolidate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/model"
	"golang.org/x/sync/errgroup"
)

// ConsolidateBatch consolidates a set of notes with bounded parallelism.
// A single note's failure is counted in the result and never aborts the
// remaining notes; only context cancellation stops the batch early.
func (l *Linker) ConsolidateBatch(ctx context.Context, rids []uuid.UUID) (*model.BatchResult, error) {
	result := &model.BatchResult{
		Timings: make(map[uuid.UUID]time.Duration, len(rids)),
	}
	var mu sync.Mutex

	parallelism := l.config.BatchParallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for _, rid := range rids {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			start := time.Now()
			run, err := l.consolidateWait(groupCtx, rid)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()

			result.Processed++
			result.Timings[rid] = elapsed

			if err != nil {
				result.Failed++
				l.log.Warn(
					"Batch consolidation failed for note",
					slog.String("rid", rid.String()),
					slog.String("error", err.Error()),
				)
				return nil
			}

			result.LinksCreated += run.LinksCreated
			if run.LinksCreated > 0 {
				result.NotesWithLinks++
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return result, err
	}

	return result, nil
}

// ConsolidateRecent consolidates every enriched note created within the
// recency window.
func (l *Linker) ConsolidateRecent(ctx context.Context) (*model.BatchResult, error) {
	since := time.Now().Add(-l.config.RecencyWindow)

	notes, err := l.notes.SelectNotesByStatus(model.NoteStatusEnriched, &since, 0)
	if err != nil {
		return nil, err
	}

	rids := make([]uuid.UUID, 0, len(notes))
	for _, note := range notes {
		rids = append(rids, note.RID)
	}

	return l.ConsolidateBatch(ctx, rids)
}
