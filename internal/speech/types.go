// Package speech measures delivery quality of the recorded pitch. All
// analysis degrades gracefully: a missing decoder or an unreadable
// recording yields an unavailable result, never an error.
package speech

// Result is the speech_quality section of the final report.
type Result struct {
	Available bool   `json:"available"`
	Note      string `json:"note,omitempty"`

	DurationSec     float64 `json:"duration_sec,omitempty"`
	SpeakingTimeSec float64 `json:"speaking_time_sec,omitempty"`
	WordsPerMinute  float64 `json:"words_per_minute,omitempty"`

	Pauses   *Pauses       `json:"pauses,omitempty"`
	Fillers  *Fillers      `json:"fillers,omitempty"`
	Pitch    *Pitch        `json:"pitch,omitempty"`
	PerSlide []SlideDetail `json:"per_slide_detailed,omitempty"`
}

// Pauses summarizes the silent gaps between speech intervals.
type Pauses struct {
	Count     int     `json:"count"`
	AvgMs     float64 `json:"avg_ms"`
	P90Ms     float64 `json:"p90_ms"`
	Over700Ms int     `json:"over_700_ms"`
}

// Fillers counts hesitation words in the transcript.
type Fillers struct {
	Count     int      `json:"count"`
	PerMinute float64  `json:"per_minute"`
	Examples  []string `json:"examples"`
}

// Pitch holds fundamental frequency statistics over voiced frames. The
// section is omitted when no voiced frames were found.
type Pitch struct {
	MeanHz float64 `json:"mean_hz"`
	StdHz  float64 `json:"std_hz"`
}

// SlideDetail is the per-slide pacing breakdown, present only when the
// client supplied a usable timing track.
type SlideDetail struct {
	Index          int     `json:"index"`
	DurationMs     int64   `json:"duration_ms"`
	Words          int     `json:"words"`
	WordsPerMinute float64 `json:"words_per_minute"`
}

func unavailable(note string) *Result {
	return &Result{Available: false, Note: note}
}
