package pipeline

import (
	"context"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/judge"
	"github.com/perfectpitch/pitch-coach/internal/script"
	"github.com/perfectpitch/pitch-coach/internal/speech"
)

// The runner sees its collaborators through narrow interfaces so tests
// can substitute each stage.

type DeckParser interface {
	Parse(path string) (*deck.Deck, error)
}

type DeckRenderer interface {
	Render(ctx context.Context, deckPath, outDir string) ([]string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, langHint string) (string, error)
}

type SlideJudge interface {
	Alignment(ctx context.Context, inputs []judge.SlideInput) ([]judge.SlideResult, error)
	Feedback(ctx context.Context, results []judge.SlideResult, quality *deck.Quality) (*judge.Feedback, error)
	CompareScript(ctx context.Context, scriptText, transcript string) (map[string]any, error)
	ReviewScript(ctx context.Context, scriptText string) (map[string]any, error)
}

type SpeechAnalyzer interface {
	Analyze(ctx context.Context, audioPath, transcript string, timings []artifacts.SlideTiming, perSlideWords []int) *speech.Result
}

type ScriptParser interface {
	Parse(path string) (*script.Script, error)
}

// DeckParserFunc adapts a parse function to the DeckParser interface.
type DeckParserFunc func(path string) (*deck.Deck, error)

func (f DeckParserFunc) Parse(path string) (*deck.Deck, error) {
	return f(path)
}

// ScriptParserFunc adapts a parse function to the ScriptParser interface.
type ScriptParserFunc func(path string) (*script.Script, error)

func (f ScriptParserFunc) Parse(path string) (*script.Script, error) {
	return f(path)
}
