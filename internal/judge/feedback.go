package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/llm"
)

const (
	maxImprovements     = 8
	maxQuestionsPerRole = 5
)

var slideRefRe = regexp.MustCompile(`(?i)(?:slide|слайд)\s*(\d+)`)

const feedbackSystemPrompt = `You are a pitch coach. Given per-slide verdicts and deck quality findings, produce concrete coaching.
Respond with JSON only, shaped as {"improvements": ["..."], "questions": {"investor": ["..."], "tech": ["..."], "product": ["..."]}}.
Improvements are short imperative sentences the presenter can act on. Questions are what an investor, a technical reviewer, and a product person would ask after this pitch; mention the slide number (e.g. "slide 3") when a question targets a specific slide. Answer in the language of the transcript.`

// Feedback asks the model for improvement suggestions and role-specific
// follow-up questions. The improvements list is capped at eight entries
// and each persona at five questions.
func (j *Judge) Feedback(ctx context.Context, results []SlideResult, quality *deck.Quality) (*Feedback, error) {
	payload := map[string]any{
		"per_slide":            results,
		"presentation_quality": quality,
	}
	b, _ := json.Marshal(payload)

	raw, err := j.client.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: feedbackSystemPrompt},
		{Role: "user", Content: "Coach this pitch:\n" + string(b)},
	})
	if err != nil {
		return nil, fmt.Errorf("generating feedback: %w", err)
	}

	var envelope struct {
		Improvements []string `json:"improvements"`
		Questions    struct {
			Investor []string `json:"investor"`
			Tech     []string `json:"tech"`
			Product  []string `json:"product"`
		} `json:"questions"`
	}
	fb := &Feedback{
		Improvements: []string{},
		Questions: Questions{
			Investor: []Question{},
			Tech:     []Question{},
			Product:  []Question{},
		},
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		j.log.Warnw("unparsable feedback response", "error", err)
		return fb, nil
	}

	fb.Improvements = capList(envelope.Improvements, maxImprovements)
	fb.Questions.Investor = parseQuestions(envelope.Questions.Investor)
	fb.Questions.Tech = parseQuestions(envelope.Questions.Tech)
	fb.Questions.Product = parseQuestions(envelope.Questions.Product)
	return fb, nil
}

func parseQuestions(raw []string) []Question {
	out := make([]Question, 0, len(raw))
	for _, q := range capList(raw, maxQuestionsPerRole) {
		out = append(out, Question{Slide: slideRef(q), Q: q})
	}
	return out
}

// slideRef extracts the first "slide N" reference in a question, in
// English or Russian.
func slideRef(q string) *int {
	m := slideRefRe.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func capList(list []string, max int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > max {
		return list[:max]
	}
	return list
}
