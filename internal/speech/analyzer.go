package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/artifacts"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}\-']+`)

type Analyzer struct {
	FfmpegBin string
	log       *zap.SugaredLogger
}

func NewAnalyzer(ffmpegBin string) *Analyzer {
	return &Analyzer{FfmpegBin: ffmpegBin, log: zap.S().Named("speech")}
}

// Analyze measures pacing, pauses, fillers and pitch of the recording.
// It never returns an error: when decoding fails the result carries
// available=false and a note instead.
func (a *Analyzer) Analyze(ctx context.Context, audioPath, transcript string, timings []artifacts.SlideTiming, perSlideWords []int) *Result {
	samples, err := a.decode(ctx, audioPath)
	if err != nil {
		a.log.Warnw("speech analysis unavailable", "path", audioPath, "error", err)
		return unavailable(fmt.Sprintf("could not decode recording: %v", err))
	}
	if len(samples) < frameSize {
		return unavailable("recording is too short to analyze")
	}

	duration := float64(len(samples)) / sampleRate
	intervals := speechIntervals(samples)

	speaking := 0.0
	for _, iv := range intervals {
		speaking += iv.seconds()
	}

	words := len(wordRe.FindAllString(transcript, -1))
	wpm := 0.0
	if speaking > 0 {
		wpm = round1(float64(words) / (speaking / 60))
	}

	res := &Result{
		Available:       true,
		DurationSec:     round1(duration),
		SpeakingTimeSec: round1(speaking),
		WordsPerMinute:  wpm,
		Pauses:          summarizePauses(pauseGaps(intervals)),
		Fillers:         countFillers(transcript, duration),
		Pitch:           pitchStats(samples, intervals),
		PerSlide:        perSlideDetail(timings, perSlideWords),
	}
	return res
}

func (a *Analyzer) decode(ctx context.Context, audioPath string) ([]float64, error) {
	decodeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(decodeCtx, a.FfmpegBin,
		"-hide_banner", "-loglevel", "error",
		"-i", audioPath,
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", "16000",
		"pipe:1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	return samplesFromPCM(stdout.Bytes()), nil
}

// perSlideDetail pairs the timing track with the per-slide word counts
// from the transcript allocation. Slides without a usable duration are
// skipped.
func perSlideDetail(timings []artifacts.SlideTiming, perSlideWords []int) []SlideDetail {
	if len(timings) == 0 || len(timings) != len(perSlideWords) {
		return nil
	}
	var out []SlideDetail
	for i, tm := range timings {
		d, ok := tm.DurationMs()
		if !ok || d <= 0 {
			continue
		}
		wpm := float64(perSlideWords[i]) / (float64(d) / 60000)
		out = append(out, SlideDetail{
			Index:          tm.Index,
			DurationMs:     d,
			Words:          perSlideWords[i],
			WordsPerMinute: round1(wpm),
		})
	}
	return out
}
