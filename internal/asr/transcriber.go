// Package asr transcribes speech recordings through the OpenAI audio
// transcription endpoint.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/perfectpitch/pitch-coach/internal/llm"
)

type Transcriber struct {
	cfg        llm.Config
	httpClient *http.Client
}

func NewTranscriber(cfg llm.Config) *Transcriber {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Transcriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the recording and returns the plain-text transcript.
// The language hint is optional.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, langHint string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading recording: %w", err)
	}
	_ = mw.WriteField("model", t.cfg.Model)
	_ = mw.WriteField("response_format", "text")
	if langHint != "" {
		_ = mw.WriteField("language", langHint)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building form: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &llm.APIError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.APIError{Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", llm.NewStatusError(resp.StatusCode, string(raw))
	}

	zap.S().Named("asr").Infow("transcribed recording",
		"path", audioPath,
		"lang_hint", langHint,
		"chars", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())

	return strings.TrimSpace(string(raw)), nil
}
