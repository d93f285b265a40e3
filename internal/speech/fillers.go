package speech

import (
	"strings"
)

// Hesitation vocabulary, English and Russian. Matching is done on
// tokens rather than regexp word boundaries, which are ASCII-only in Go
// and would miss the Cyrillic entries.
var fillerWords = map[string]struct{}{
	"uh": {}, "uhm": {}, "um": {}, "umm": {}, "er": {}, "erm": {}, "ah": {},
	"э": {}, "ээ": {}, "эм": {}, "ээм": {}, "ну": {}, "типа": {},
	"короче": {}, "значит": {}, "вот": {},
}

var fillerPhrases = [][]string{
	{"you", "know"},
	{"kind", "of"},
	{"sort", "of"},
	{"как", "бы"},
	{"то", "есть"},
}

func countFillers(transcript string, durationSec float64) *Fillers {
	f := &Fillers{Examples: []string{}}

	tokens := wordRe.FindAllString(strings.ToLower(transcript), -1)
	seen := map[string]struct{}{}
	note := func(example string) {
		f.Count++
		if _, ok := seen[example]; ok {
			return
		}
		seen[example] = struct{}{}
		if len(f.Examples) < 5 {
			f.Examples = append(f.Examples, example)
		}
	}

	for i := 0; i < len(tokens); i++ {
		matchedPhrase := false
		for _, phrase := range fillerPhrases {
			if i+len(phrase) <= len(tokens) && matchAt(tokens, i, phrase) {
				note(strings.Join(phrase, " "))
				i += len(phrase) - 1
				matchedPhrase = true
				break
			}
		}
		if matchedPhrase {
			continue
		}
		if _, ok := fillerWords[tokens[i]]; ok {
			note(tokens[i])
		}
	}

	if durationSec > 0 {
		f.PerMinute = round1(float64(f.Count) / (durationSec / 60))
	}
	return f
}

func matchAt(tokens []string, at int, phrase []string) bool {
	for j, w := range phrase {
		if tokens[at+j] != w {
			return false
		}
	}
	return true
}
