package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/judge"
	"github.com/perfectpitch/pitch-coach/internal/llm"
	"github.com/perfectpitch/pitch-coach/internal/script"
	"github.com/perfectpitch/pitch-coach/internal/speech"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/internal/store/model"
)

type stubParser struct {
	deck *deck.Deck
	err  error
}

func (s *stubParser) Parse(string) (*deck.Deck, error) { return s.deck, s.err }

type stubRenderer struct {
	paths []string
	err   error
}

func (s *stubRenderer) Render(context.Context, string, string) ([]string, error) {
	return s.paths, s.err
}

type stubTranscriber struct {
	transcript string
	err        error
	langHint   string
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ string, langHint string) (string, error) {
	s.langHint = langHint
	return s.transcript, s.err
}

type stubJudge struct {
	results  []judge.SlideResult
	feedback *judge.Feedback
	err      error
	inputs   []judge.SlideInput
}

func (s *stubJudge) Alignment(_ context.Context, inputs []judge.SlideInput) ([]judge.SlideResult, error) {
	s.inputs = inputs
	return s.results, s.err
}

func (s *stubJudge) Feedback(context.Context, []judge.SlideResult, *deck.Quality) (*judge.Feedback, error) {
	if s.feedback == nil {
		return &judge.Feedback{Improvements: []string{}, Questions: judge.Questions{
			Investor: []judge.Question{}, Tech: []judge.Question{}, Product: []judge.Question{},
		}}, nil
	}
	return s.feedback, nil
}

func (s *stubJudge) CompareScript(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"adherence_0_1": 0.8}, nil
}

func (s *stubJudge) ReviewScript(context.Context, string) (map[string]any, error) {
	return map[string]any{"clarity_0_1": 0.9}, nil
}

type stubSpeech struct {
	result *speech.Result
}

func (s *stubSpeech) Analyze(context.Context, string, string, []artifacts.SlideTiming, []int) *speech.Result {
	if s.result == nil {
		return &speech.Result{Available: false, Note: "could not decode recording"}
	}
	return s.result
}

type stubScriptParser struct{}

func (stubScriptParser) Parse(string) (*script.Script, error) {
	return &script.Script{Text: "hello investors"}, nil
}

// recordingJobs keeps the progress and state of every registry update in
// the order the runner applied them.
type recordingJobs struct {
	store.Job
	progress []int
	states   []model.JobState
}

func (r *recordingJobs) Update(ctx context.Context, taskID string, update model.JobUpdate) (*model.Job, error) {
	job, err := r.Job.Update(ctx, taskID, update)
	if err == nil {
		r.progress = append(r.progress, job.ProgressPct)
		r.states = append(r.states, job.State)
	}
	return job, err
}

type fixture struct {
	runner *Runner
	jobs   store.Job
	files  *artifacts.Store
	judge  *stubJudge
	trace  *recordingJobs
}

func newFixture(t *testing.T, c Collaborators) *fixture {
	t.Helper()
	root := t.TempDir()
	files := artifacts.NewStore(filepath.Join(root, "uploads"), filepath.Join(root, "artifacts"))
	jobs := &recordingJobs{Job: store.NewMemoryStore().Job()}

	if c.DeckParser == nil {
		c.DeckParser = &stubParser{deck: twoSlideDeck()}
	}
	if c.Renderer == nil {
		c.Renderer = &stubRenderer{err: errors.New("soffice not installed")}
	}
	if c.Transcriber == nil {
		c.Transcriber = &stubTranscriber{transcript: "we build rockets and sell them"}
	}
	sj, _ := c.Judge.(*stubJudge)
	if c.Judge == nil {
		sj = &stubJudge{results: []judge.SlideResult{
			{Index: 1, Similarity: 0.8},
			{Index: 2, Similarity: 0.6},
		}}
		c.Judge = sj
	}
	if c.Speech == nil {
		c.Speech = &stubSpeech{}
	}
	if c.ScriptParser == nil {
		c.ScriptParser = stubScriptParser{}
	}

	runner := NewRunner(jobs, files, c, ModelInfo{STT: "whisper-1", Judge: "gpt-4o-mini"}, nil)
	return &fixture{runner: runner, jobs: jobs, files: files, judge: sj, trace: jobs}
}

func twoSlideDeck() *deck.Deck {
	return &deck.Deck{Slides: []deck.Slide{
		{Index: 1, Title: "Intro", Bullets: []string{"who we are"}},
		{Index: 2, Title: "Ask", Bullets: []string{"seed round"}},
	}}
}

func (f *fixture) newSession(t *testing.T, uploads ...string) string {
	t.Helper()
	sessionID := "0123456789abcdef0123456789abcdef"
	require.NoError(t, f.files.CreateSession(sessionID))
	for _, name := range uploads {
		_, err := f.files.SaveUpload(sessionID, name, strings.NewReader("content"))
		require.NoError(t, err)
	}
	return sessionID
}

func (f *fixture) submit(t *testing.T, sessionID string) string {
	t.Helper()
	taskID := "task-" + sessionID[:8]
	_, err := f.jobs.Create(context.Background(), taskID, sessionID)
	require.NoError(t, err)
	return taskID
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t, Collaborators{})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateDone, job.State)
	assert.Equal(t, 100, job.ProgressPct)
	assert.Empty(t, job.ErrorCode)

	var report Report
	require.NoError(t, f.files.ReadJSON(sessionID, artifacts.ReportFile, &report))
	assert.Equal(t, sessionID, report.SessionID)
	assert.Equal(t, 70.0, report.OverallScore)
	assert.Equal(t, 0.7, report.Delivery.SlideSpeechSimilarityAvg)
	assert.Equal(t, "whisper-1", report.Models.STT)
	assert.Len(t, report.Slides.PerSlide, 2)
	assert.False(t, report.Script.Present)
	require.NotNil(t, report.SpeechQuality)
	assert.False(t, report.SpeechQuality.Available)

	// The transcript and slide extraction are persisted as artifacts.
	raw, err := f.files.ReadRaw(sessionID, artifacts.TranscriptFile)
	require.NoError(t, err)
	assert.Equal(t, "we build rockets and sell them", string(raw))
	var parsed deck.Deck
	require.NoError(t, f.files.ReadJSON(sessionID, artifacts.SlidesFile, &parsed))
	assert.Len(t, parsed.Slides, 2)

	// The status mirror tracks the terminal state.
	var mirror statusMirror
	require.NoError(t, f.files.ReadJSON(sessionID, artifacts.StatusFile, &mirror))
	assert.Equal(t, "DONE", mirror.State)
	assert.Equal(t, 100, mirror.ProgressPct)
}

func TestRunProgressNeverDecreases(t *testing.T) {
	f := newFixture(t, Collaborators{})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	progress := f.trace.progress
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "observed %v", progress)
	}
	assert.Equal(t, 100, progress[len(progress)-1])
	assert.Equal(t, model.JobStateDone, f.trace.states[len(f.trace.states)-1])
}

func TestRunProgressHoldsThroughFailure(t *testing.T) {
	f := newFixture(t, Collaborators{})
	sessionID := f.newSession(t, "pptx.pptx")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	progress := f.trace.progress
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "observed %v", progress)
	}

	// The failure update keeps the progress reached by the last stage.
	assert.Equal(t, 30, progress[len(progress)-1])
	assert.Equal(t, model.JobStateFailed, f.trace.states[len(f.trace.states)-1])
}

func TestRunFailsWithoutPresentation(t *testing.T) {
	f := newFixture(t, Collaborators{})
	sessionID := f.newSession(t, "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	assert.Equal(t, StageParse, job.Stage)
	assert.Equal(t, ErrorCodeInputNotFound, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "presentation")
}

func TestRunFailsWithoutRecording(t *testing.T) {
	f := newFixture(t, Collaborators{})
	sessionID := f.newSession(t, "pptx.pptx")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	assert.Equal(t, StageASR, job.Stage)
	assert.Equal(t, ErrorCodeInputNotFound, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "audio/video")

	// No report is produced for a failed run.
	var report Report
	err = f.files.ReadJSON(sessionID, artifacts.ReportFile, &report)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunClassifiesUpstreamOutage(t *testing.T) {
	f := newFixture(t, Collaborators{
		Transcriber: &stubTranscriber{err: &llm.APIError{StatusCode: 503, Body: "overloaded"}},
	})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	assert.Equal(t, ErrorCodeExternalService, job.ErrorCode)
}

func TestRunClassifiesBrokenDeck(t *testing.T) {
	f := newFixture(t, Collaborators{
		DeckParser: &stubParser{err: errors.New("not a zip archive")},
	})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	assert.Equal(t, ErrorCodeParseFailure, job.ErrorCode)
}

func TestRunSurvivesStagePanic(t *testing.T) {
	f := newFixture(t, Collaborators{
		DeckParser: DeckParserFunc(func(string) (*deck.Deck, error) { panic("boom") }),
	})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateFailed, job.State)
	assert.Equal(t, ErrorCodePipelineError, job.ErrorCode)
	assert.Contains(t, job.ErrorMessage, "internal error")
}

func TestRunUsesTimingsAndScript(t *testing.T) {
	sj := &stubJudge{results: []judge.SlideResult{
		{Index: 1, Similarity: 1},
		{Index: 2, Similarity: 1},
	}}
	f := newFixture(t, Collaborators{Judge: sj})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm", "word.docx")
	require.NoError(t, os.WriteFile(
		filepath.Join(f.files.UploadDir(sessionID), "data.json"),
		[]byte(`{"lang_hint":"en","slides":[{"index":1,"start_ms":0,"end_ms":10000},{"index":2,"start_ms":10000,"end_ms":40000}]}`),
		0o644))
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	job, err := f.jobs.Get(context.Background(), taskID)
	require.NoError(t, err)
	require.Equal(t, model.JobStateDone, job.State)

	// The transcript splits 25/75 across the two timed slides.
	require.Len(t, sj.inputs, 2)
	assert.Equal(t, "we", sj.inputs[0].Transcript)
	assert.Equal(t, "build rockets and sell them", sj.inputs[1].Transcript)
	require.NotNil(t, sj.inputs[0].DurationMs)
	assert.Equal(t, int64(10000), *sj.inputs[0].DurationMs)

	var report Report
	require.NoError(t, f.files.ReadJSON(sessionID, artifacts.ReportFile, &report))
	assert.True(t, report.Script.Present)
	assert.Equal(t, 0.8, report.Script.Eval["adherence_0_1"])
	assert.Equal(t, 0.9, report.Script.Quality["clarity_0_1"])
}

func TestRunWritesFeedbackArtifacts(t *testing.T) {
	slide := 2
	sj := &stubJudge{
		results: []judge.SlideResult{{Index: 1, Similarity: 0.9}, {Index: 2, Similarity: 0.9}},
		feedback: &judge.Feedback{
			Improvements: []string{"slow down", "cut slide 2 text"},
			Questions: judge.Questions{
				Investor: []judge.Question{{Slide: &slide, Q: "What is CAC on slide 2?"}},
				Tech:     []judge.Question{},
				Product:  []judge.Question{},
			},
		},
	}
	f := newFixture(t, Collaborators{Judge: sj})
	sessionID := f.newSession(t, "pptx.pptx", "audio.webm")
	taskID := f.submit(t, sessionID)

	f.runner.Run(context.Background(), sessionID, taskID)

	raw, err := f.files.ReadRaw(sessionID, artifacts.FeedbackFile)
	require.NoError(t, err)
	assert.Equal(t, "- slow down\n- cut slide 2 text\n", string(raw))

	var questions judge.Questions
	require.NoError(t, f.files.ReadJSON(sessionID, artifacts.QuestionsFile, &questions))
	require.Len(t, questions.Investor, 1)
	assert.Equal(t, 2, *questions.Investor[0].Slide)
}
