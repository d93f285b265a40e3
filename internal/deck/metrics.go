package deck

import (
	"fmt"
	"math"
	"sort"
)

const (
	densityBadThreshold  = 0.7
	smallFontThreshold   = 18.0
	minContrastRatio     = 4.5
	fontSpreadThreshold  = 6.0
	defaultBackgroundHex = "FFFFFF"
)

// Quality is the presentation_quality section of the final report.
type Quality struct {
	Density            DensityReport  `json:"density"`
	SmallFonts         []SlideFlag    `json:"small_fonts"`
	LowContrast        []ContrastFlag `json:"low_contrast"`
	StyleInconsistency []StyleFlag    `json:"style_inconsistency"`
	VBASummary         VBASummary     `json:"vba_summary"`
}

type DensityReport struct {
	PerSlide []SlideDensity `json:"per_slide"`
	BadOn    []int          `json:"bad_on"`
}

type SlideDensity struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Chars int     `json:"chars"`
}

type SlideFlag struct {
	Index   int     `json:"index"`
	MinFont float64 `json:"min_font_pt"`
}

type ContrastFlag struct {
	Index    int     `json:"index"`
	Ratio    float64 `json:"ratio"`
	TextHex  string  `json:"text_hex"`
	Backdrop string  `json:"background_hex"`
}

type StyleFlag struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type VBASummary struct {
	HasVBA bool   `json:"has_vba"`
	Note   string `json:"note,omitempty"`
}

// Analyze scores the parsed deck on text density, typography and color
// contrast. The outcome feeds the report; it never fails.
func Analyze(d *Deck) *Quality {
	q := &Quality{
		SmallFonts:         []SlideFlag{},
		LowContrast:        []ContrastFlag{},
		StyleInconsistency: []StyleFlag{},
	}
	q.Density.PerSlide = []SlideDensity{}
	q.Density.BadOn = []int{}

	majorityFont := majorityTypeface(d)

	for i := range d.Slides {
		s := &d.Slides[i]

		score := densityScore(s, d.SlideArea)
		q.Density.PerSlide = append(q.Density.PerSlide, SlideDensity{
			Index: s.Index,
			Score: round3(score),
			Chars: s.CharCount(),
		})
		if score > densityBadThreshold {
			q.Density.BadOn = append(q.Density.BadOn, s.Index)
		}

		if minFont, ok := minSize(s.style.FontSizes); ok && minFont < smallFontThreshold {
			q.SmallFonts = append(q.SmallFonts, SlideFlag{Index: s.Index, MinFont: minFont})
		}

		bg := s.style.Background
		if bg == "" {
			bg = defaultBackgroundHex
		}
		worst := math.MaxFloat64
		worstHex := ""
		for _, c := range s.style.TextColors {
			if r := contrastRatio(c, bg); r > 0 && r < worst {
				worst = r
				worstHex = c
			}
		}
		if worstHex != "" && worst < minContrastRatio {
			q.LowContrast = append(q.LowContrast, ContrastFlag{
				Index:    s.Index,
				Ratio:    round3(worst),
				TextHex:  "#" + worstHex,
				Backdrop: "#" + bg,
			})
		}

		if reason := styleIssue(s, majorityFont, avgSize(d)); reason != "" {
			q.StyleInconsistency = append(q.StyleInconsistency, StyleFlag{Index: s.Index, Reason: reason})
		}
	}

	q.VBASummary.HasVBA = d.HasVBA
	if d.HasVBA {
		q.VBASummary.Note = "presentation embeds a VBA project; macros are not executed"
	}

	return q
}

// densityScore blends raw character count with the share of the canvas
// covered by text frames. Values above densityBadThreshold read as
// overloaded slides.
func densityScore(s *Slide, slideArea int64) float64 {
	charPart := math.Min(1, float64(s.CharCount())/900)
	areaPart := 0.0
	if slideArea > 0 && s.style.TextArea > 0 {
		ratio := float64(s.style.TextArea) / float64(slideArea)
		areaPart = math.Min(1, ratio*3)
	}
	return 0.7*charPart + 0.3*areaPart
}

func styleIssue(s *Slide, majorityFont string, deckAvgSize float64) string {
	if majorityFont != "" && len(s.style.Fonts) > 0 {
		found := false
		for _, f := range s.style.Fonts {
			if f == majorityFont {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("does not use the deck's dominant typeface %q", majorityFont)
		}
	}
	if minFont, ok := minSize(s.style.FontSizes); ok && deckAvgSize > 0 {
		if math.Abs(minFont-deckAvgSize) >= fontSpreadThreshold {
			return fmt.Sprintf("font size %.0fpt diverges from the deck average %.0fpt", minFont, deckAvgSize)
		}
	}
	return ""
}

func majorityTypeface(d *Deck) string {
	counts := map[string]int{}
	for _, s := range d.Slides {
		for _, f := range s.style.Fonts {
			counts[f]++
		}
	}
	best, bestN := "", 0
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > bestN {
			best, bestN = name, counts[name]
		}
	}
	return best
}

func avgSize(d *Deck) float64 {
	sum, n := 0.0, 0
	for _, s := range d.Slides {
		for _, sz := range s.style.FontSizes {
			sum += sz
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func minSize(sizes []float64) (float64, bool) {
	if len(sizes) == 0 {
		return 0, false
	}
	m := sizes[0]
	for _, v := range sizes[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
