package judge

import (
	"sort"

	"github.com/perfectpitch/pitch-coach/internal/deck"
)

const weakSimilarityThreshold = 0.5

// WeakSlides unions the slides flagged as overloaded, typographically
// poor, or badly covered by the speech. The result is sorted and
// deduplicated.
func WeakSlides(results []SlideResult, quality *deck.Quality) []int {
	set := map[int]struct{}{}
	for _, r := range results {
		if r.Similarity < weakSimilarityThreshold {
			set[r.Index] = struct{}{}
		}
	}
	if quality != nil {
		for _, idx := range quality.Density.BadOn {
			set[idx] = struct{}{}
		}
		for _, f := range quality.SmallFonts {
			set[f.Index] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
