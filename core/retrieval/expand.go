package retrieval

import (
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/model"
)

// EdgeSource provides edge adjacency for graph expansion.
type EdgeSource interface {
	SelectEdgesOfNote(rid uuid.UUID, relation *model.Relation) ([]*model.Edge, error)
}

// expandState tracks a discovered node during BFS.
type expandState struct {
	node  *model.ExpandedNode
	seeds map[uuid.UUID]bool
}

// Expand performs a bounded breadth-first traversal from the seed results
// over the typed edge graph. A node's hop distance is fixed at first
// discovery; seeds reaching the same node at the same hop accumulate in its
// seed set. Relevance is the discovery-path edge-weight product decayed per
// hop and scaled by the best originating seed's fused score.
// maxHops is clamped to model.MaxHopCeiling; maxHops = 0 yields no results.
func Expand(source EdgeSource, seeds []*model.SearchResult, maxHops int, relations []model.Relation, decay float64) ([]*model.ExpandedNode, error) {
	if maxHops > model.MaxHopCeiling {
		maxHops = model.MaxHopCeiling
	}
	if maxHops <= 0 || len(seeds) == 0 {
		return nil, nil
	}

	visited := make(map[uuid.UUID]int)
	states := make(map[uuid.UUID]*expandState)

	// Seeds start at hop 0 with their fused score as base relevance.
	current := make([]*expandState, 0, len(seeds))
	for _, seed := range seeds {
		if _, seen := visited[seed.NoteRID]; seen {
			continue
		}
		visited[seed.NoteRID] = 0

		relevance := seed.Score
		if relevance <= 0 {
			relevance = 1.0
		}

		current = append(current, &expandState{
			node: &model.ExpandedNode{
				NoteRID:   seed.NoteRID,
				Relevance: relevance,
			},
			seeds: map[uuid.UUID]bool{seed.NoteRID: true},
		})
	}

	for hop := 1; hop <= maxHops; hop++ {
		next := make(map[uuid.UUID]*expandState)

		for _, state := range current {
			edges, err := source.SelectEdgesOfNote(state.node.NoteRID, nil)
			if err != nil {
				return nil, err
			}

			for _, edge := range edges {
				if !relationAllowed(edge.Relation, relations) {
					continue
				}

				targetRID := edge.Other(state.node.NoteRID)
				relevance := state.node.Relevance * edge.Weight * decay

				if seenHop, seen := visited[targetRID]; seen {
					// Hop distance is fixed at first discovery and never
					// revised; only same-level rediscovery merges in.
					if seenHop < hop {
						continue
					}
					existing := next[targetRID]
					for seedRID := range state.seeds {
						existing.seeds[seedRID] = true
					}
					if relevance > existing.node.Relevance {
						existing.node.Relevance = relevance
						existing.node.Relation = edge.Relation
					}
					continue
				}

				visited[targetRID] = hop

				seedSet := make(map[uuid.UUID]bool, len(state.seeds))
				for seedRID := range state.seeds {
					seedSet[seedRID] = true
				}

				discovered := &expandState{
					node: &model.ExpandedNode{
						NoteRID:     targetRID,
						Relation:    edge.Relation,
						HopDistance: hop,
						Relevance:   relevance,
					},
					seeds: seedSet,
				}
				next[targetRID] = discovered
				states[targetRID] = discovered
			}
		}

		current = current[:0]
		for _, state := range next {
			current = append(current, state)
		}
	}

	results := make([]*model.ExpandedNode, 0, len(states))
	for _, state := range states {
		state.node.SeedRIDs = sortedRIDs(state.seeds)
		results = append(results, state.node)
	}

	// Order by hop distance ascending, then relevance descending.
	sort.Slice(results, func(i, j int) bool {
		if results[i].HopDistance != results[j].HopDistance {
			return results[i].HopDistance < results[j].HopDistance
		}
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].NoteRID.String() < results[j].NoteRID.String()
	})

	return results, nil
}

func relationAllowed(relation model.Relation, filter []model.Relation) bool {
	if len(filter) == 0 {
		return true
	}
	for _, allowed := range filter {
		if relation == allowed {
			return true
		}
	}
	return false
}

func sortedRIDs(set map[uuid.UUID]bool) []uuid.UUID {
	rids := make([]uuid.UUID, 0, len(set))
	for rid := range set {
		rids = append(rids, rid)
	}
	sort.Slice(rids, func(i, j int) bool {
		return rids[i].String() < rids[j].String()
	})
	return rids
}
