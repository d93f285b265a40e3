package judge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/llm"
)

// ChatClient is the slice of the LLM client the judge needs.
type ChatClient interface {
	ChatJSON(ctx context.Context, messages []llm.Message) (string, error)
}

// SlideInput bundles everything the judge sees for one slide.
type SlideInput struct {
	Index      int
	Title      string
	Bullets    []string
	Notes      string
	Transcript string
	DurationMs *int64
	ImagePath  string
}

type Judge struct {
	client    ChatClient
	batchSize int
	log       *zap.SugaredLogger
}

func New(client ChatClient, batchSize int) *Judge {
	if batchSize <= 0 {
		batchSize = 3
	}
	return &Judge{
		client:    client,
		batchSize: batchSize,
		log:       zap.S().Named("judge"),
	}
}

const alignmentSystemPrompt = `You compare what a presenter said against what their slides show.
For each slide you receive its extracted text, optionally a rendered image, and the transcript segment spoken while it was visible.
Respond with JSON only, shaped as {"per_slide": [{"index": <int>, "similarity_0_1": <float>, "judgement": "<one sentence>", "missing_points": [...], "hallucinated_points": [...], "evidence": [...]}]}.
similarity_0_1 is how well the speech covers the slide's content, 0 meaning unrelated and 1 meaning fully covered.
missing_points are slide points the speaker skipped; hallucinated_points are claims absent from the slide; evidence quotes short transcript fragments.`

// Alignment judges every slide against its transcript segment, in
// batches. A batch whose response cannot be parsed degrades to zeroed
// results rather than failing the run.
func (j *Judge) Alignment(ctx context.Context, inputs []SlideInput) ([]SlideResult, error) {
	results := make([]SlideResult, 0, len(inputs))
	for start := 0; start < len(inputs); start += j.batchSize {
		end := start + j.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch := inputs[start:end]

		parsed, err := j.judgeBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, in := range batch {
			r := SlideResult{
				Index:              in.Index,
				SlideTitle:         in.Title,
				Transcript:         in.Transcript,
				DurationMs:         in.DurationMs,
				MissingPoints:      []string{},
				HallucinatedPoints: []string{},
				Evidence:           []string{},
			}
			if p, ok := parsed[in.Index]; ok {
				r.Similarity = clamp01(p.Similarity)
				r.Judgement = p.Judgement
				if p.MissingPoints != nil {
					r.MissingPoints = p.MissingPoints
				}
				if p.HallucinatedPoints != nil {
					r.HallucinatedPoints = p.HallucinatedPoints
				}
				if p.Evidence != nil {
					r.Evidence = p.Evidence
				}
			}
			results = append(results, r)
		}
	}
	return results, nil
}

type rawSlideVerdict struct {
	Index              int      `json:"index"`
	Similarity         float64  `json:"similarity_0_1"`
	Judgement          string   `json:"judgement"`
	MissingPoints      []string `json:"missing_points"`
	HallucinatedPoints []string `json:"hallucinated_points"`
	Evidence           []string `json:"evidence"`
}

func (j *Judge) judgeBatch(ctx context.Context, batch []SlideInput) (map[int]rawSlideVerdict, error) {
	content := []llm.ContentPart{llm.TextPart(batchPayload(batch))}
	for _, in := range batch {
		if in.ImagePath == "" {
			continue
		}
		uri, err := imageDataURI(in.ImagePath)
		if err != nil {
			j.log.Warnw("skipping slide image", "slide", in.Index, "error", err)
			continue
		}
		content = append(content, llm.ImagePart(uri))
	}

	raw, err := j.client.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: alignmentSystemPrompt},
		{Role: "user", Content: content},
	})
	if err != nil {
		return nil, fmt.Errorf("judging slides %d-%d: %w", batch[0].Index, batch[len(batch)-1].Index, err)
	}

	var envelope struct {
		PerSlide []rawSlideVerdict `json:"per_slide"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		j.log.Warnw("unparsable judge response", "slides", len(batch), "error", err)
		return map[int]rawSlideVerdict{}, nil
	}
	out := make(map[int]rawSlideVerdict, len(envelope.PerSlide))
	for _, v := range envelope.PerSlide {
		out[v.Index] = v
	}
	return out, nil
}

func batchPayload(batch []SlideInput) string {
	type slidePayload struct {
		Index      int      `json:"index"`
		Title      string   `json:"title"`
		Bullets    []string `json:"bullets"`
		Notes      string   `json:"notes,omitempty"`
		Transcript string   `json:"transcript"`
	}
	payload := make([]slidePayload, 0, len(batch))
	for _, in := range batch {
		payload = append(payload, slidePayload{
			Index:      in.Index,
			Title:      in.Title,
			Bullets:    in.Bullets,
			Notes:      in.Notes,
			Transcript: in.Transcript,
		})
	}
	b, _ := json.Marshal(payload)

	var sb strings.Builder
	sb.WriteString("Judge the following slides against their spoken segments:\n")
	sb.Write(b)
	return sb.String()
}

func imageDataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// AverageSimilarity is the mean similarity across slides, rounded to
// three decimals. An empty result set averages to zero.
func AverageSimilarity(results []SlideResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Similarity
	}
	return math.Round(sum/float64(len(results))*1000) / 1000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
