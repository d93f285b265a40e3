package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
	"github.com/perfectpitch/pitch-coach/internal/deck"
	"github.com/perfectpitch/pitch-coach/internal/events"
	"github.com/perfectpitch/pitch-coach/internal/judge"
	"github.com/perfectpitch/pitch-coach/internal/llm"
	"github.com/perfectpitch/pitch-coach/internal/store"
	"github.com/perfectpitch/pitch-coach/internal/store/model"
	"github.com/perfectpitch/pitch-coach/pkg/metrics"
)

// Error codes surfaced through the status endpoint. The set is closed:
// clients switch on these values.
const (
	ErrorCodeInputNotFound   = "INPUT_NOT_FOUND"
	ErrorCodeParseFailure    = "PARSE_FAILURE"
	ErrorCodeExternalService = "EXTERNAL_SERVICE_FAILURE"
	ErrorCodePipelineError   = "PIPELINE_ERROR"
	ErrorCodeQueueFull       = "QUEUE_FULL"
)

// Pipeline stage names, in execution order.
const (
	StageParse         = "parse"
	StageASR           = "asr"
	StageJudge         = "judge"
	StageSpeechQuality = "speech_quality"
	StageAssemble      = "assemble"
)

// EventWriter is the slice of the event producer the runner needs.
type EventWriter interface {
	Write(ctx context.Context, kind string, body io.Reader) error
}

// Collaborators are the stage implementations the runner drives.
type Collaborators struct {
	DeckParser   DeckParser
	Renderer     DeckRenderer
	Transcriber  Transcriber
	Judge        SlideJudge
	Speech       SpeechAnalyzer
	ScriptParser ScriptParser
}

// Runner executes the coaching pipeline for one session: parse the
// deck, transcribe the recording, judge alignment, measure delivery and
// assemble the report. All progress is recorded in the job registry and
// mirrored to status.json.
type Runner struct {
	jobs     store.Job
	files    *artifacts.Store
	c        Collaborators
	models   ModelInfo
	producer EventWriter
	log      *zap.SugaredLogger
}

func NewRunner(jobs store.Job, files *artifacts.Store, c Collaborators, models ModelInfo, producer EventWriter) *Runner {
	return &Runner{
		jobs:     jobs,
		files:    files,
		c:        c,
		models:   models,
		producer: producer,
		log:      zap.S().Named("pipeline"),
	}
}

// Run drives one job to a terminal state. It never returns an error and
// never panics out: any failure, including a stage panic, lands in the
// registry as FAILED.
func (r *Runner) Run(ctx context.Context, sessionID, taskID string) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorw("pipeline panicked", "task_id", taskID, "panic", p)
			r.fail(ctx, sessionID, taskID, StageAssemble, ErrorCodePipelineError, fmt.Sprintf("internal error: %v", p))
		}
	}()

	start := time.Now()
	r.log.Infow("pipeline started", "task_id", taskID, "session_id", sessionID)

	if err := r.files.EnsureArtifactDir(sessionID); err != nil {
		r.fail(ctx, sessionID, taskID, StageParse, ErrorCodePipelineError, err.Error())
		return
	}

	var data artifacts.SessionData
	if err := r.files.ReadUploadJSON(sessionID, artifacts.DataFile, &data); err != nil {
		r.log.Warnw("unreadable data.json, continuing without timings", "session_id", sessionID, "error", err)
	}

	// parse
	r.setStage(ctx, sessionID, taskID, StageParse, 5)
	stageStart := time.Now()
	parsed, quality, images, err := r.runParse(ctx, sessionID)
	if err != nil {
		r.fail(ctx, sessionID, taskID, StageParse, classify(err, ErrorCodeParseFailure), err.Error())
		return
	}
	metrics.ObserveStageDurationMetric(StageParse, time.Since(stageStart).Seconds())

	// asr
	r.setStage(ctx, sessionID, taskID, StageASR, 30)
	stageStart = time.Now()
	audioPath, transcript, err := r.runASR(ctx, sessionID, data.LangHint)
	if err != nil {
		r.fail(ctx, sessionID, taskID, StageASR, classify(err, ErrorCodePipelineError), err.Error())
		return
	}
	metrics.ObserveStageDurationMetric(StageASR, time.Since(stageStart).Seconds())

	// judge
	r.setStage(ctx, sessionID, taskID, StageJudge, 60)
	stageStart = time.Now()
	chunks := judge.AllocateTranscript(transcript, len(parsed.Slides), data.Slides)
	results, feedback, scriptSection, err := r.runJudge(ctx, sessionID, parsed, quality, images, chunks, data.Slides, transcript)
	if err != nil {
		r.fail(ctx, sessionID, taskID, StageJudge, classify(err, ErrorCodePipelineError), err.Error())
		return
	}
	metrics.ObserveStageDurationMetric(StageJudge, time.Since(stageStart).Seconds())

	// speech quality
	r.setStage(ctx, sessionID, taskID, StageSpeechQuality, 92)
	stageStart = time.Now()
	perSlideWords := make([]int, len(chunks))
	for i, c := range chunks {
		perSlideWords[i] = len(judge.Words(c))
	}
	speechResult := r.c.Speech.Analyze(ctx, audioPath, transcript, data.Slides, perSlideWords)
	metrics.ObserveStageDurationMetric(StageSpeechQuality, time.Since(stageStart).Seconds())

	// assemble
	r.setStage(ctx, sessionID, taskID, StageAssemble, 95)
	report := &Report{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		GeneratedAt:  time.Now().UTC(),
		Models:       r.models,
		OverallScore: overallScore(results),
		Delivery: Delivery{
			SlideSpeechSimilarityAvg: judge.AverageSimilarity(results),
			WeakSlides:               judge.WeakSlides(results, quality),
		},
		Slides:              SlidesSection{PerSlide: results},
		PresentationQuality: quality,
		Questions:           feedback.Questions,
		Script:              scriptSection,
		SpeechQuality:       speechResult,
	}
	if err := r.writeOutputs(sessionID, report, feedback); err != nil {
		r.fail(ctx, sessionID, taskID, StageAssemble, ErrorCodePipelineError, err.Error())
		return
	}

	r.update(ctx, sessionID, taskID, model.NewJobUpdate().
		WithState(model.JobStateDone).
		WithStage(StageAssemble).
		WithProgress(100))
	metrics.IncreaseJobsFinishedMetric(string(model.JobStateDone))

	r.emit(ctx, events.ReportMessageKind, events.ReportEvent{
		SessionID:    sessionID,
		TaskID:       taskID,
		OverallScore: report.OverallScore,
	})
	r.log.Infow("pipeline finished",
		"task_id", taskID,
		"session_id", sessionID,
		"overall_score", report.OverallScore,
		"elapsed_ms", time.Since(start).Milliseconds())
}

func (r *Runner) runParse(ctx context.Context, sessionID string) (*deck.Deck, *deck.Quality, map[int]string, error) {
	deckPath, err := r.files.FindPresentation(sessionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("no presentation uploaded: %w", err)
	}
	parsed, err := r.c.DeckParser.Parse(deckPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unreadable presentation %s: %w", filepath.Base(deckPath), err)
	}
	quality := deck.Analyze(parsed)

	if err := r.files.WriteJSON(sessionID, artifacts.SlidesFile, parsed); err != nil {
		return nil, nil, nil, err
	}

	// Rendering is best effort: judging falls back to extracted text.
	images := map[int]string{}
	paths, err := r.c.Renderer.Render(ctx, deckPath, r.files.SlidesDir(sessionID))
	if err != nil {
		r.log.Warnw("slide rendering unavailable", "session_id", sessionID, "error", err)
	} else {
		for i, p := range paths {
			images[i+1] = p
		}
	}
	return parsed, quality, images, nil
}

func (r *Runner) runASR(ctx context.Context, sessionID, langHint string) (string, string, error) {
	audioPath, err := r.files.FindRecording(sessionID)
	if err != nil {
		return "", "", fmt.Errorf("no audio/video recording uploaded: %w", err)
	}
	transcript, err := r.c.Transcriber.Transcribe(ctx, audioPath, langHint)
	if err != nil {
		return "", "", fmt.Errorf("transcription failed: %w", err)
	}
	if err := r.files.WriteText(sessionID, artifacts.TranscriptFile, transcript); err != nil {
		return "", "", err
	}
	return audioPath, transcript, nil
}

func (r *Runner) runJudge(
	ctx context.Context,
	sessionID string,
	parsed *deck.Deck,
	quality *deck.Quality,
	images map[int]string,
	chunks []string,
	timings []artifacts.SlideTiming,
	transcript string,
) ([]judge.SlideResult, *judge.Feedback, ScriptSection, error) {
	inputs := make([]judge.SlideInput, 0, len(parsed.Slides))
	for i, s := range parsed.Slides {
		in := judge.SlideInput{
			Index:      s.Index,
			Title:      s.Title,
			Bullets:    s.Bullets,
			Notes:      s.Notes,
			Transcript: chunks[i],
			ImagePath:  images[s.Index],
		}
		if i < len(timings) {
			if d, ok := timings[i].DurationMs(); ok {
				dd := d
				in.DurationMs = &dd
			}
		}
		inputs = append(inputs, in)
	}

	results, err := r.c.Judge.Alignment(ctx, inputs)
	if err != nil {
		return nil, nil, ScriptSection{}, err
	}
	feedback, err := r.c.Judge.Feedback(ctx, results, quality)
	if err != nil {
		return nil, nil, ScriptSection{}, err
	}

	section := ScriptSection{}
	if scriptPath := r.files.FindScript(sessionID); scriptPath != "" {
		section = r.evalScript(ctx, scriptPath, transcript)
	}
	return results, feedback, section, nil
}

// evalScript is best effort end to end: a bad script upload or a failed
// model call leaves the section marked present without verdicts.
func (r *Runner) evalScript(ctx context.Context, scriptPath, transcript string) ScriptSection {
	section := ScriptSection{Present: true}
	parsed, err := r.c.ScriptParser.Parse(scriptPath)
	if err != nil {
		r.log.Warnw("unreadable script upload", "path", scriptPath, "error", err)
		return section
	}
	if eval, err := r.c.Judge.CompareScript(ctx, parsed.Text, transcript); err != nil {
		r.log.Warnw("script comparison failed", "error", err)
	} else {
		section.Eval = eval
	}
	if quality, err := r.c.Judge.ReviewScript(ctx, parsed.Text); err != nil {
		r.log.Warnw("script review failed", "error", err)
	} else {
		section.Quality = quality
	}
	return section
}

func (r *Runner) writeOutputs(sessionID string, report *Report, feedback *judge.Feedback) error {
	if err := r.files.WriteJSON(sessionID, artifacts.ReportFile, report); err != nil {
		return err
	}
	if err := r.files.WriteJSON(sessionID, artifacts.QuestionsFile, feedback.Questions); err != nil {
		return err
	}
	var md strings.Builder
	for _, imp := range feedback.Improvements {
		md.WriteString("- ")
		md.WriteString(imp)
		md.WriteString("\n")
	}
	return r.files.WriteText(sessionID, artifacts.FeedbackFile, md.String())
}

func (r *Runner) setStage(ctx context.Context, sessionID, taskID, stage string, pct int) {
	r.update(ctx, sessionID, taskID, model.NewJobUpdate().
		WithState(model.JobStateRunning).
		WithStage(stage).
		WithProgress(pct))
}

func (r *Runner) fail(ctx context.Context, sessionID, taskID, stage, code, message string) {
	r.log.Errorw("pipeline failed",
		"task_id", taskID,
		"session_id", sessionID,
		"stage", stage,
		"error_code", code,
		"error", message)
	r.update(ctx, sessionID, taskID, model.NewJobUpdate().
		WithState(model.JobStateFailed).
		WithStage(stage).
		WithError(code, message))
	metrics.IncreaseJobsFinishedMetric(string(model.JobStateFailed))
	r.emit(ctx, events.JobFailedMessageKind, events.JobFailedEvent{
		SessionID:    sessionID,
		TaskID:       taskID,
		Stage:        stage,
		ErrorCode:    code,
		ErrorMessage: message,
	})
}

// update writes the registry and mirrors the job to status.json. The
// mirror is best effort; the registry stays authoritative.
func (r *Runner) update(ctx context.Context, sessionID, taskID string, u model.JobUpdate) {
	job, err := r.jobs.Update(ctx, taskID, u)
	if err != nil {
		r.log.Errorw("registry update failed", "task_id", taskID, "error", err)
		return
	}
	mirror := statusMirror{
		TaskID:       job.TaskID,
		SessionID:    job.SessionID,
		State:        string(job.State),
		Stage:        job.Stage,
		ProgressPct:  job.ProgressPct,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
	}
	if err := r.files.WriteJSON(sessionID, artifacts.StatusFile, mirror); err != nil {
		r.log.Warnw("status mirror write failed", "task_id", taskID, "error", err)
	}
}

type statusMirror struct {
	TaskID       string `json:"task_id"`
	SessionID    string `json:"session_id"`
	State        string `json:"state"`
	Stage        string `json:"stage"`
	ProgressPct  int    `json:"progress_pct"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func (r *Runner) emit(ctx context.Context, kind string, payload any) {
	if r.producer == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := r.producer.Write(ctx, kind, bytes.NewReader(body)); err != nil {
		r.log.Warnw("event emission failed", "kind", kind, "error", err)
	}
}

// classify maps an error to its status code, falling back to the given
// stage default.
func classify(err error, fallback string) string {
	if errors.Is(err, artifacts.ErrInputNotFound) {
		return ErrorCodeInputNotFound
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return ErrorCodeExternalService
	}
	return fallback
}
