// Package judge scores transcript-to-slide alignment with an LLM and
// derives the coaching outputs of the report.
package judge

// SlideResult is the per-slide verdict in the final report.
type SlideResult struct {
	Index              int      `json:"index"`
	SlideTitle         string   `json:"slide_title"`
	Similarity         float64  `json:"similarity_0_1"`
	Judgement          string   `json:"judgement"`
	MissingPoints      []string `json:"missing_points"`
	HallucinatedPoints []string `json:"hallucinated_points"`
	Evidence           []string `json:"evidence"`
	Transcript         string   `json:"transcript"`
	DurationMs         *int64   `json:"duration_ms"`
}

// Question is one suggested follow-up question with an optional slide
// anchor.
type Question struct {
	Slide *int   `json:"slide"`
	Q     string `json:"q"`
}

// Questions groups suggested questions by the asking persona.
type Questions struct {
	Investor []Question `json:"investor"`
	Tech     []Question `json:"tech"`
	Product  []Question `json:"product"`
}

// Feedback is the actionable coaching output.
type Feedback struct {
	Improvements []string  `json:"improvements"`
	Questions    Questions `json:"questions"`
}
