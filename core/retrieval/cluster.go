package retrieval

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/model"
)

// ComputeClusters groups a working set of notes. Two notes are cluster-linked
// when their shared entity/tag overlap reaches MinOverlap, or when their
// vector proximity reaches MinSimilarity. The assignment is deterministic for
// a fixed input set and thresholds; ties break by lowest note rid. Clusters
// smaller than MinClusterSize are dropped from the output.
func ComputeClusters(notes []*model.Note, config *model.QueryConfig) []*model.Cluster {
	if len(notes) == 0 {
		return nil
	}

	// Sort by rid so union order, and with it the whole computation,
	// does not depend on input order.
	sorted := make([]*model.Note, len(notes))
	copy(sorted, notes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RID.String() < sorted[j].RID.String()
	})

	attrs := make([]map[string]bool, len(sorted))
	for i, note := range sorted {
		attrs[i] = attributeSet(note)
	}

	parent := make([]int, len(sorted))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri == rj {
			return
		}
		// Lower index (lowest rid) wins as root.
		if ri < rj {
			parent[rj] = ri
		} else {
			parent[ri] = rj
		}
	}

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if clusterLinked(sorted[i], sorted[j], attrs[i], attrs[j], config) {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	for i := range sorted {
		root := find(i)
		members[root] = append(members[root], i)
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	var clusters []*model.Cluster
	for _, root := range roots {
		indexes := members[root]
		if len(indexes) < config.MinClusterSize {
			continue
		}

		rids := make([]uuid.UUID, 0, len(indexes))
		for _, i := range indexes {
			rids = append(rids, sorted[i].RID)
		}

		clusters = append(clusters, &model.Cluster{
			ID:               len(clusters) + 1,
			NoteRIDs:         rids,
			SharedAttributes: sharedAttributes(indexes, attrs),
		})
	}

	return clusters
}

// clusterLinked checks the two linking conditions between a pair of notes.
func clusterLinked(a, b *model.Note, attrsA, attrsB map[string]bool, config *model.QueryConfig) bool {
	overlap := 0
	for attr := range attrsA {
		if attrsB[attr] {
			overlap++
		}
	}
	if config.MinOverlap > 0 && overlap >= config.MinOverlap {
		return true
	}

	if len(a.Embedding) > 0 && len(a.Embedding) == len(b.Embedding) {
		if cosineSimilarity(a.Embedding, b.Embedding) >= config.MinSimilarity {
			return true
		}
	}

	return false
}

func attributeSet(note *model.Note) map[string]bool {
	set := make(map[string]bool)
	for _, attr := range note.SharedAttributes() {
		normalized := strings.ToLower(strings.TrimSpace(attr))
		if normalized != "" {
			set[normalized] = true
		}
	}
	return set
}

// sharedAttributes returns the attributes held by at least two cluster
// members, sorted for stable output.
func sharedAttributes(indexes []int, attrs []map[string]bool) []string {
	if len(indexes) < 2 {
		return nil
	}

	counts := make(map[string]int)
	for _, i := range indexes {
		for attr := range attrs[i] {
			counts[attr]++
		}
	}

	var shared []string
	for attr, count := range counts {
		if count >= 2 {
			shared = append(shared, attr)
		}
	}
	sort.Strings(shared)

	return shared
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
