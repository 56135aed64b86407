package retrieval

import (
	"sort"

	"github.com/siherrmann/memograph/model"
)

// FuseResults merges keyword and vector hits into one ranked result list.
// A note appearing in both sources gets one result carrying both component
// scores; a missing source contributes score 0. The fused score is the
// weighted combination of the components; ties break by more recent
// creation, then by rid for a stable order.
func FuseResults(keyword []*model.KeywordHit, vector []*model.VectorHit, config *model.QueryConfig) []*model.SearchResult {
	resultMap := make(map[string]*model.SearchResult)

	for _, hit := range keyword {
		resultMap[hit.NoteRID.String()] = &model.SearchResult{
			NoteRID:      hit.NoteRID,
			KeywordScore: clampScore(hit.Score),
			Snippet:      hit.Snippet,
			CreatedAt:    hit.CreatedAt,
		}
	}

	for _, hit := range vector {
		if existing, exists := resultMap[hit.NoteRID.String()]; exists {
			existing.VectorScore = clampScore(hit.Score)
			continue
		}
		resultMap[hit.NoteRID.String()] = &model.SearchResult{
			NoteRID:     hit.NoteRID,
			VectorScore: clampScore(hit.Score),
			CreatedAt:   hit.CreatedAt,
		}
	}

	results := make([]*model.SearchResult, 0, len(resultMap))
	for _, result := range resultMap {
		result.Score = config.KeywordWeight*result.KeywordScore + config.VectorWeight*result.VectorScore
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].NoteRID.String() < results[j].NoteRID.String()
	})

	// Limit to top-k
	if config.TopK > 0 && len(results) > config.TopK {
		results = results[:config.TopK]
	}

	return results
}

// clampScore keeps component scores inside [0,1]; sources already deliver
// normalized scores, this guards against drift.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
