// Package grouping clusters PhotoRecords into duplicate groups. Records are
// joined when visual evidence (identical content hash, close perceptual
// hashes, or an embedding verdict in the ambiguous band) and temporal
// evidence agree; groups are the connected components of those edges, so
// membership is transitive rather than pairwise.
package grouping

import (
	"context"
	"sort"
	"sync"
	"time"

	"photocons/logging"
	"photocons/types"
)

// Options are the active similarity thresholds.
type Options struct {
	// VisualThreshold is the normalized perceptual-hash similarity
	// required for a direct visual match.
	VisualThreshold float64

	// AmbiguityBand widens the screen: similarities within the band just
	// below VisualThreshold are escalated to the embedding comparison.
	AmbiguityBand float64

	// EmbeddingThreshold is the cosine similarity an escalated pair must
	// exceed to join.
	EmbeddingThreshold float64

	// TemporalThresholdDays is the maximum capture-time difference for
	// two timestamped records. A missing timestamp on either side leaves
	// the decision to visual evidence alone.
	TemporalThresholdDays int

	// Workers bounds the per-bucket comparison pool.
	Workers int
}

// bucketPrefixLen is the number of leading hex characters (4 bits each)
// used to bucket records before pairwise comparison. Sixteen shared leading
// bits is a coarse screen: it keeps near-identical hashes together while
// avoiding an exhaustive cross-comparison of the whole batch.
const bucketPrefixLen = 4

// Group computes duplicate groups over the record arena. Unreadable
// records are skipped entirely; singleton groups are valid output and pass
// through unchanged.
func Group(ctx context.Context, records []types.PhotoRecord, opts Options) ([]types.DuplicateGroup, error) {
	uf := newUnionFind(len(records))

	// Exact duplicates join unconditionally on the content hash,
	// regardless of thresholds or timestamps.
	byContent := make(map[string]int)
	for i := range records {
		if records[i].Unreadable || records[i].ContentHash == "" {
			continue
		}
		if first, seen := byContent[records[i].ContentHash]; seen {
			uf.union(first, i)
		} else {
			byContent[records[i].ContentHash] = i
		}
	}

	// Bucket by a coarse perceptual-hash prefix so the O(n²) comparison
	// only runs within buckets.
	buckets := make(map[string][]int)
	for i := range records {
		if records[i].Unreadable || records[i].PerceptualHash == "" {
			continue
		}
		key := records[i].PerceptualHash
		if len(key) > bucketPrefixLen {
			key = key[:bucketPrefixLen]
		}
		buckets[key] = append(buckets[key], i)
	}

	// Buckets are disjoint, so their pairwise comparisons run in
	// parallel; the union-find merge stays on this goroutine.
	type edge struct{ a, b int }
	edgeChan := make(chan edge, 256)
	errChan := make(chan error, 1)

	go func() {
		defer close(edgeChan)

		var wg sync.WaitGroup
		workers := opts.Workers
		if workers < 1 {
			workers = 1
		}
		semaphore := make(chan struct{}, workers)

		for _, members := range buckets {
			if err := ctx.Err(); err != nil {
				select {
				case errChan <- err:
				default:
				}
				break
			}

			wg.Add(1)
			semaphore <- struct{}{}

			go func(members []int) {
				defer wg.Done()
				defer func() { <-semaphore }()

				for i := 0; i < len(members); i++ {
					for j := i + 1; j < len(members); j++ {
						if opts.match(&records[members[i]], &records[members[j]]) {
							edgeChan <- edge{members[i], members[j]}
						}
					}
				}
			}(members)
		}

		wg.Wait()
	}()

	for e := range edgeChan {
		uf.union(e.a, e.b)
	}

	select {
	case err := <-errChan:
		return nil, err
	default:
	}

	// Collect components into groups with stable, reproducible ordering.
	componentMembers := make(map[int][]int)
	for i := range records {
		if records[i].Unreadable {
			continue
		}
		root := uf.find(i)
		componentMembers[root] = append(componentMembers[root], i)
	}

	roots := make([]int, 0, len(componentMembers))
	for root := range componentMembers {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	groups := make([]types.DuplicateGroup, 0, len(roots))
	for _, root := range roots {
		members := componentMembers[root]
		sort.Ints(members)
		groups = append(groups, types.DuplicateGroup{
			ID:             len(groups) + 1,
			Members:        members,
			Representative: -1,
		})
	}

	logging.DebugLog("Grouped %d records into %d groups", len(records), len(groups))
	return groups, nil
}

// match is the similarity edge predicate: the visual condition and the
// temporal condition must both hold.
func (o Options) match(a, b *types.PhotoRecord) bool {
	// Identical bytes are the same photo, whatever the clocks say.
	if a.ContentHash != "" && a.ContentHash == b.ContentHash {
		return true
	}

	if !o.temporalMatch(a, b) {
		return false
	}

	sim := HashSimilarity(a.PerceptualHash, b.PerceptualHash)
	if sim >= o.VisualThreshold {
		return true
	}

	// Ambiguous band: the hash alone cannot decide. Escalate to the
	// embedding when both sides have one; fall back to the average hash
	// as a conservative secondary screen when they don't.
	if sim >= o.VisualThreshold-o.AmbiguityBand {
		if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
			return CosineSimilarity(a.Embedding, b.Embedding) > o.EmbeddingThreshold
		}
		return HashSimilarity(a.AverageHash, b.AverageHash) >= o.VisualThreshold
	}

	return false
}

// temporalMatch applies the capture-time condition. An unknown timestamp
// on either side is treated as satisfied so genuine duplicates lacking
// metadata are not discarded.
func (o Options) temporalMatch(a, b *types.PhotoRecord) bool {
	if a.CaptureTime == nil || b.CaptureTime == nil {
		return true
	}

	diff := a.CaptureTime.Sub(*b.CaptureTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(o.TemporalThresholdDays)*24*time.Hour
}
