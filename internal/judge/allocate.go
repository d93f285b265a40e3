package judge

import (
	"regexp"
	"strings"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}\-']+`)

// Words splits a transcript into tokens. A token is a run of letters,
// digits, hyphens and apostrophes; punctuation is dropped.
func Words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// AllocateTranscript distributes the transcript's words across n slides.
//
// With a complete, valid timing track the split is proportional to each
// slide's duration: every slide gets the floor of its share and the last
// slide absorbs the remainder. Without usable timings the split is even,
// with the leftover words going one each to the leading slides. Either
// way every word lands on exactly one slide.
func AllocateTranscript(transcript string, n int, timings []artifacts.SlideTiming) []string {
	if n <= 0 {
		return nil
	}
	words := Words(transcript)
	counts := allocateCounts(len(words), n, timings)

	chunks := make([]string, n)
	pos := 0
	for i, c := range counts {
		chunks[i] = strings.Join(words[pos:pos+c], " ")
		pos += c
	}
	return chunks
}

func allocateCounts(total, n int, timings []artifacts.SlideTiming) []int {
	counts := make([]int, n)
	if total == 0 {
		return counts
	}

	durations, ok := validDurations(n, timings)
	if !ok {
		base, extra := total/n, total%n
		for i := range counts {
			counts[i] = base
			if i < extra {
				counts[i]++
			}
		}
		return counts
	}

	var sum int64
	for _, d := range durations {
		sum += d
	}
	assigned := 0
	for i := 0; i < n-1; i++ {
		c := int(float64(total) * float64(durations[i]) / float64(sum))
		counts[i] = c
		assigned += c
	}
	counts[n-1] = total - assigned
	return counts
}

// validDurations returns per-slide durations when the timing track
// covers every slide with well-formed, positive-sum intervals.
func validDurations(n int, timings []artifacts.SlideTiming) ([]int64, bool) {
	if len(timings) != n {
		return nil, false
	}
	durations := make([]int64, n)
	var sum int64
	for i, tm := range timings {
		d, ok := tm.DurationMs()
		if !ok {
			return nil, false
		}
		durations[i] = d
		sum += d
	}
	if sum <= 0 {
		return nil, false
	}
	return durations, true
}
