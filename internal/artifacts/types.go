package artifacts

// SlideTiming is one slide window from the optional data.json input,
// milliseconds from the start of the recording.
type SlideTiming struct {
	Index   int    `json:"index"`
	StartMs *int64 `json:"start_ms"`
	EndMs   *int64 `json:"end_ms"`
}

// DurationMs returns the slide duration and whether the timing is valid.
func (t SlideTiming) DurationMs() (int64, bool) {
	if t.StartMs == nil || t.EndMs == nil || *t.EndMs < *t.StartMs {
		return 0, false
	}
	return *t.EndMs - *t.StartMs, true
}

// SessionData mirrors the optional data.json uploaded with a session:
// a language hint for transcription plus per-slide timings.
type SessionData struct {
	LangHint string        `json:"lang_hint,omitempty"`
	Slides   []SlideTiming `json:"slides,omitempty"`
}

// SessionMeta mirrors meta.json: free-form context about the pitch that
// is forwarded to the judge.
type SessionMeta map[string]any
