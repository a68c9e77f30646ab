// Package mapstats derives aggregate views over meaning entries. Everything
// here is a pure function of its inputs so results are reproducible.
package mapstats

import (
	"sort"
	"strings"

	"github.com/margin-app/margin/internal/models"
)

// DefaultTopN bounds tag lists in ComputeMapStats.
const DefaultTopN = 10

// TagCount is a tag with its usage count.
type TagCount struct {
	Tag   string
	Count int
}

// TagMeaning is a tag with its net meaning score. Net adds positive-category
// uses and subtracts negative-category uses; Total counts all uses.
type TagMeaning struct {
	Tag   string
	Net   int
	Total int
}

// MapStats is the full aggregate view for the map screen.
type MapStats struct {
	TotalEntries    int
	CountByCategory map[models.Category]int
	TopTags         []TagCount
	TagMeanings     []TagMeaning
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// CountByCategory counts entries per category. Every category is present in
// the result, zero included.
func CountByCategory(entries []models.MeaningEntry) map[models.Category]int {
	counts := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[c] = 0
	}
	for _, e := range entries {
		if _, ok := counts[e.Category]; ok {
			counts[e.Category]++
		}
	}
	return counts
}

// CountTags returns the topN most used tags, count descending with ties
// broken alphabetically. topN <= 0 means unlimited.
func CountTags(entries []models.MeaningEntry, topN int) []TagCount {
	counts := map[string]int{}
	for _, e := range entries {
		for _, raw := range e.Tags {
			tag := normalizeTag(raw)
			if tag == "" {
				continue
			}
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})

	if topN > 0 && len(result) > topN {
		result = result[:topN]
	}
	return result
}

// NetMeaning scores each tag by the categories of the entries using it and
// returns the topN by absolute net score. Ties break by total descending,
// then tag ascending. topN <= 0 means unlimited.
func NetMeaning(entries []models.MeaningEntry, topN int) []TagMeaning {
	type score struct{ net, total int }
	scores := map[string]*score{}

	for _, e := range entries {
		delta := -1
		if e.Category.Positive() {
			delta = 1
		}
		for _, raw := range e.Tags {
			tag := normalizeTag(raw)
			if tag == "" {
				continue
			}
			s, ok := scores[tag]
			if !ok {
				s = &score{}
				scores[tag] = s
			}
			s.net += delta
			s.total++
		}
	}

	result := make([]TagMeaning, 0, len(scores))
	for tag, s := range scores {
		result = append(result, TagMeaning{Tag: tag, Net: s.net, Total: s.total})
	}
	sort.Slice(result, func(i, j int) bool {
		ai, aj := abs(result[i].Net), abs(result[j].Net)
		if ai != aj {
			return ai > aj
		}
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Tag < result[j].Tag
	})

	if topN > 0 && len(result) > topN {
		result = result[:topN]
	}
	return result
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ComputeMapStats assembles the aggregate view. topN <= 0 falls back to
// DefaultTopN.
func ComputeMapStats(entries []models.MeaningEntry, topN int) MapStats {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return MapStats{
		TotalEntries:    len(entries),
		CountByCategory: CountByCategory(entries),
		TopTags:         CountTags(entries, topN),
		TagMeanings:     NetMeaning(entries, 0),
	}
}
