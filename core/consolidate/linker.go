package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/core/pipeline"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

// NoteStore provides the note store primitives consolidation consumes.
type NoteStore interface {
	SelectNote(rid uuid.UUID) (*model.Note, error)
	SelectCandidateNotes(rid uuid.UUID, attrs []string, since *time.Time, limit int) ([]*model.Note, error)
	SelectNotesByStatus(status model.NoteStatus, since *time.Time, limit int) ([]*model.Note, error)
}

// EdgeStore provides the edge store primitives consolidation consumes.
type EdgeStore interface {
	SelectEdgesOfNote(rid uuid.UUID, relation *model.Relation) ([]*model.Edge, error)
	EdgeExists(from uuid.UUID, to uuid.UUID, relation model.Relation) (bool, error)
	InsertEdgeBatch(ctx context.Context, edges []*model.Edge) error
}

// Linker runs consolidation for single notes: candidate generation from the
// store, link suggestion through the external classifier, validation of the
// proposals and atomic persistence of the surviving edges. Runs for the same
// note are serialized through a per-note lock.
type Linker struct {
	notes   NoteStore
	edges   EdgeStore
	suggest pipeline.SuggestFunc
	locker  *NoteLocker
	config  model.ConsolidationConfig
	log     *slog.Logger
}

// NewLinker creates a new consolidation linker.
// The suggest function is wrapped with the configured suggestion timeout.
func NewLinker(notes NoteStore, edges EdgeStore, suggest pipeline.SuggestFunc, config model.ConsolidationConfig, logger *slog.Logger) *Linker {
	return NewLinkerWithLocker(notes, edges, suggest, NewNoteLocker(), config, logger)
}

// NewLinkerWithLocker creates a linker sharing an existing per-note locker.
// Locks held through the shared locker stay effective when the linker is
// rebuilt on reconfiguration.
func NewLinkerWithLocker(notes NoteStore, edges EdgeStore, suggest pipeline.SuggestFunc, locker *NoteLocker, config model.ConsolidationConfig, logger *slog.Logger) *Linker {
	if suggest != nil {
		suggest = pipeline.SuggestWithTimeout(suggest, config.SuggestionTimeout)
	}

	return &Linker{
		notes:   notes,
		edges:   edges,
		suggest: suggest,
		locker:  locker,
		config:  config,
		log:     logger,
	}
}

// Consolidate runs one consolidation pass for a note. A run already in flight
// for the same note rejects the call with model.ErrConsolidationInFlight.
// Suggestion failure or timeout fails closed: no links are written and the
// lock is released.
func (l *Linker) Consolidate(ctx context.Context, rid uuid.UUID) (*model.ConsolidationResult, error) {
	release, err := l.locker.TryAcquire(rid)
	if err != nil {
		return nil, err
	}
	defer release()

	return l.consolidateLocked(ctx, rid)
}

// consolidateWait is the batch-mode variant: instead of rejecting a held
// lock it waits up to the configured lock timeout.
func (l *Linker) consolidateWait(ctx context.Context, rid uuid.UUID) (*model.ConsolidationResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, l.config.LockTimeout)
	defer cancel()

	release, err := l.locker.Acquire(lockCtx, rid)
	if err != nil {
		return nil, helper.NewError("acquire note lock", err)
	}
	defer release()

	return l.consolidateLocked(ctx, rid)
}

func (l *Linker) consolidateLocked(ctx context.Context, rid uuid.UUID) (*model.ConsolidationResult, error) {
	start := time.Now()

	target, err := l.notes.SelectNote(rid)
	if err != nil {
		return nil, err
	}

	candidates, err := l.generateCandidates(target)
	if err != nil {
		return nil, helper.NewError("generate candidates", err)
	}

	result := &model.ConsolidationResult{
		NoteRID:         rid,
		CandidatesFound: len(candidates),
	}

	if len(candidates) == 0 || l.suggest == nil {
		result.Duration = time.Since(start)
		return result, nil
	}

	proposals, err := l.suggest(ctx, target, candidates)
	if err != nil {
		return nil, helper.NewError("suggest links", err)
	}

	edges := l.validateProposals(target, candidates, proposals)
	if len(edges) > 0 {
		err = l.edges.InsertEdgeBatch(ctx, edges)
		if err != nil {
			return nil, helper.NewError("insert edge batch", err)
		}
	}

	result.LinksCreated = len(edges)
	result.Duration = time.Since(start)

	l.log.Info(
		"Consolidated note",
		slog.String("rid", rid.String()),
		slog.Int("candidates", result.CandidatesFound),
		slog.Int("links", result.LinksCreated),
	)

	return result, nil
}

// generateCandidates returns notes sharing an episodic entity or tag with the
// target, or created within the recency window. Candidates already linked to
// the target by any relation are dropped; the classifier only sees notes a
// new edge could be written for.
func (l *Linker) generateCandidates(target *model.Note) ([]*model.Note, error) {
	since := time.Now().Add(-l.config.RecencyWindow)

	candidates, err := l.notes.SelectCandidateNotes(target.RID, target.SharedAttributes(), &since, l.config.MaxCandidates)
	if err != nil {
		return nil, err
	}

	linked := make(map[uuid.UUID]bool)
	existing, err := l.edges.SelectEdgesOfNote(target.RID, nil)
	if err != nil {
		return nil, err
	}
	for _, edge := range existing {
		linked[edge.Other(target.RID)] = true
	}

	filtered := make([]*model.Note, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.RID == target.RID || linked[candidate.RID] {
			continue
		}
		filtered = append(filtered, candidate)
	}

	return filtered, nil
}

// validateProposals turns classifier proposals into edges. Proposals with an
// unknown relation, a rid outside the candidate set or a (note, relation)
// pair already linked are dropped with a warning, never failing the run.
func (l *Linker) validateProposals(target *model.Note, candidates []*model.Note, proposals []model.LinkProposal) []*model.Edge {
	candidateSet := make(map[uuid.UUID]bool, len(candidates))
	for _, candidate := range candidates {
		candidateSet[candidate.RID] = true
	}

	seen := make(map[string]bool)
	var edges []*model.Edge

	for _, proposal := range proposals {
		if !proposal.Relation.Valid() {
			l.log.Warn(
				"Dropping proposal with invalid relation",
				slog.String("rid", proposal.NoteRID.String()),
				slog.String("relation", string(proposal.Relation)),
			)
			continue
		}

		if proposal.NoteRID == target.RID || !candidateSet[proposal.NoteRID] {
			l.log.Warn(
				"Dropping proposal outside candidate set",
				slog.String("rid", proposal.NoteRID.String()),
			)
			continue
		}

		pair := fmt.Sprintf("%s/%s", proposal.NoteRID, proposal.Relation)
		if seen[pair] {
			continue
		}
		seen[pair] = true

		exists, err := l.edges.EdgeExists(target.RID, proposal.NoteRID, proposal.Relation)
		if err != nil {
			l.log.Warn(
				"Dropping proposal, edge existence check failed",
				slog.String("rid", proposal.NoteRID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if exists {
			continue
		}

		weight := proposal.Weight
		if weight <= 0 {
			weight = l.config.DefaultWeight
		}

		edges = append(edges, &model.Edge{
			FromRID:  target.RID,
			ToRID:    proposal.NoteRID,
			Relation: proposal.Relation,
			Weight:   weight,
		})
	}

	return edges
}
