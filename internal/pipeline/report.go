package pipeline

import (
	"math"
	"time"

	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/judge"
	"github.com/perfectpitch/pitch-coach/internal/speech"
)

// Report is the assembled coaching report persisted as report.json.
type Report struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Models      ModelInfo `json:"models"`

	// OverallScore is the average slide similarity on a 0-100 scale.
	OverallScore float64 `json:"overall_score"`

	Delivery            Delivery        `json:"delivery"`
	Slides              SlidesSection   `json:"slides"`
	PresentationQuality *deck.Quality   `json:"presentation_quality"`
	Questions           judge.Questions `json:"questions"`
	Script              ScriptSection   `json:"script"`
	SpeechQuality       *speech.Result  `json:"speech_quality"`
}

// ModelInfo records which models produced the report.
type ModelInfo struct {
	STT   string `json:"stt"`
	Judge string `json:"judge"`
}

type Delivery struct {
	SlideSpeechSimilarityAvg float64 `json:"slide_speech_similarity_avg"`
	WeakSlides               []int   `json:"weak_slides"`
}

type SlidesSection struct {
	PerSlide []judge.SlideResult `json:"per_slide"`
}

// ScriptSection reports on the optional written script. Eval compares
// it to the delivery; Quality reviews the writing itself.
type ScriptSection struct {
	Present bool           `json:"present"`
	Eval    map[string]any `json:"eval,omitempty"`
	Quality map[string]any `json:"quality,omitempty"`
}

func overallScore(results []judge.SlideResult) float64 {
	return math.Round(judge.AverageSimilarity(results)*100*10) / 10
}
