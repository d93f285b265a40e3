package judge

import (
	"context"
	"encoding/json"

	"github.com/perfectpitch/pitch-coach/internal/llm"
)

const compareScriptPrompt = `You compare a written pitch script against what was actually said on stage.
Respond with JSON only, shaped as {"adherence_0_1": <float>, "skipped": ["..."], "improvised": ["..."], "summary": "<one or two sentences>"}.
adherence_0_1 is how closely the delivery follows the script. skipped lists script passages that were never spoken; improvised lists spoken content absent from the script.`

const reviewScriptPrompt = `You review the writing quality of a pitch script on its own.
Respond with JSON only, shaped as {"clarity_0_1": <float>, "structure_0_1": <float>, "strengths": ["..."], "weaknesses": ["..."], "summary": "<one or two sentences>"}.`

// CompareScript judges how faithfully the delivery follows the written
// script. The verdict is best effort: an unparsable response yields nil
// without error so a bad model reply never fails the run.
func (j *Judge) CompareScript(ctx context.Context, scriptText, transcript string) (map[string]any, error) {
	payload, _ := json.Marshal(map[string]string{
		"script":     scriptText,
		"transcript": transcript,
	})
	return j.bestEffortJSON(ctx, compareScriptPrompt, string(payload))
}

// ReviewScript evaluates the script's writing quality in isolation.
func (j *Judge) ReviewScript(ctx context.Context, scriptText string) (map[string]any, error) {
	return j.bestEffortJSON(ctx, reviewScriptPrompt, scriptText)
}

func (j *Judge) bestEffortJSON(ctx context.Context, system, user string) (map[string]any, error) {
	raw, err := j.client.ChatJSON(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		j.log.Warnw("unparsable script verdict", "error", err)
		return nil, nil
	}
	return out, nil
}
