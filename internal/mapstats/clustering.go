package mapstats

import (
	"sort"

	"github.com/margin-app/margin/internal/models"
)

const (
	// DefaultSimilarityThreshold is the minimum Jaccard similarity for two
	// tags to be linked.
	DefaultSimilarityThreshold = 0.3

	// DefaultMaxClusters bounds the number of clusters returned.
	DefaultMaxClusters = 5

	// minTagUsage drops tags used by fewer entries before clustering.
	minTagUsage = 2
)

// TagCluster is a group of tags that tend to appear on the same entries.
// EntryCount counts entries carrying every tag in the cluster.
type TagCluster struct {
	ID         int
	Tags       []string
	EntryCount int
}

// ClusterOptions tunes ClusterTags. Zero values pick the defaults.
type ClusterOptions struct {
	SimilarityThreshold float64
	MaxClusters         int
}

func (o ClusterOptions) withDefaults() ClusterOptions {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.MaxClusters <= 0 {
		o.MaxClusters = DefaultMaxClusters
	}
	return o
}

// jaccard computes |a∩b| / |a∪b| for two entry-id sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// ClusterTags groups co-occurring tags by Jaccard similarity over the sets
// of entries each tag appears in. The result is deterministic for a given
// input regardless of map iteration order.
func ClusterTags(entries []models.MeaningEntry, opts ClusterOptions) []TagCluster {
	opts = opts.withDefaults()

	// tag -> set of entry ids using it
	tagEntries := map[string]map[string]struct{}{}
	for _, e := range entries {
		for _, raw := range e.Tags {
			tag := normalizeTag(raw)
			if tag == "" {
				continue
			}
			set, ok := tagEntries[tag]
			if !ok {
				set = map[string]struct{}{}
				tagEntries[tag] = set
			}
			set[e.ID] = struct{}{}
		}
	}

	// rare tags produce noise clusters, drop them up front
	tags := make([]string, 0, len(tagEntries))
	for tag, set := range tagEntries {
		if len(set) >= minTagUsage {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)

	adjacency := map[string][]string{}
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			if jaccard(tagEntries[tags[i]], tagEntries[tags[j]]) >= opts.SimilarityThreshold {
				adjacency[tags[i]] = append(adjacency[tags[i]], tags[j])
				adjacency[tags[j]] = append(adjacency[tags[j]], tags[i])
			}
		}
	}

	// connected components, visited in sorted order for determinism
	visited := map[string]bool{}
	var clusters []TagCluster
	for _, start := range tags {
		if visited[start] {
			continue
		}
		component := []string{}
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			tag := queue[0]
			queue = queue[1:]
			component = append(component, tag)
			neighbors := append([]string(nil), adjacency[tag]...)
			sort.Strings(neighbors)
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		if len(component) < 2 {
			continue
		}
		sort.Strings(component)
		clusters = append(clusters, TagCluster{
			Tags:       component,
			EntryCount: countEntriesWithAllTags(entries, component),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].EntryCount != clusters[j].EntryCount {
			return clusters[i].EntryCount > clusters[j].EntryCount
		}
		if len(clusters[i].Tags) != len(clusters[j].Tags) {
			return len(clusters[i].Tags) > len(clusters[j].Tags)
		}
		return clusters[i].Tags[0] < clusters[j].Tags[0]
	})

	if len(clusters) > opts.MaxClusters {
		clusters = clusters[:opts.MaxClusters]
	}
	for i := range clusters {
		clusters[i].ID = i
	}
	return clusters
}

// EntriesForCluster filters to entries carrying every tag of the cluster,
// matching tags case-insensitively.
func EntriesForCluster(entries []models.MeaningEntry, cluster TagCluster) []models.MeaningEntry {
	var result []models.MeaningEntry
	for _, e := range entries {
		have := map[string]struct{}{}
		for _, raw := range e.Tags {
			have[normalizeTag(raw)] = struct{}{}
		}
		all := true
		for _, tag := range cluster.Tags {
			if _, ok := have[tag]; !ok {
				all = false
				break
			}
		}
		if all {
			result = append(result, e)
		}
	}
	return result
}

// countEntriesWithAllTags counts entries carrying every tag in the set.
func countEntriesWithAllTags(entries []models.MeaningEntry, tags []string) int {
	count := 0
	for _, e := range entries {
		have := map[string]struct{}{}
		for _, raw := range e.Tags {
			have[normalizeTag(raw)] = struct{}{}
		}
		all := true
		for _, tag := range tags {
			if _, ok := have[tag]; !ok {
				all = false
				break
			}
		}
		if all {
			count++
		}
	}
	return count
}
