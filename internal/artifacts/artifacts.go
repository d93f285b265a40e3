// Package artifacts manages the per-session file layout: everything the
// user uploaded and everything the pipeline produces.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Artifact file names within a session directory.
const (
	MetaFile       = "meta.json"
	DataFile       = "data.json"
	TranscriptFile = "transcript.txt"
	SlidesFile     = "slides.json"
	ReportFile     = "report.json"
	FeedbackFile   = "feedback.md"
	QuestionsFile  = "questions.json"
	StatusFile     = "status.json"
	SlidesDirName  = "slides"
)

// ErrInputNotFound marks a mandatory uploaded file that is missing.
var ErrInputNotFound = errors.New("input not found")

var (
	presentationCandidates = []string{"pptx.pptm", "pptx.pptx", "presentation.pptx"}
	recordingCandidates    = []string{"audio.webm", "video.mp4", "audio.wav", "audio.m4a", "audio.mp3"}
	scriptCandidates       = []string{"word.docx", "word.docm", "script.docx", "script.docm", "word.doc"}
)

// Store reads and writes session files under two roots: the upload
// directory (user input) and the artifact directory (pipeline output).
type Store struct {
	uploadsDir   string
	artifactsDir string
}

func NewStore(uploadsDir, artifactsDir string) *Store {
	return &Store{uploadsDir: uploadsDir, artifactsDir: artifactsDir}
}

func (s *Store) UploadDir(sessionID string) string {
	return filepath.Join(s.uploadsDir, sessionID)
}

func (s *Store) ArtifactDir(sessionID string) string {
	return filepath.Join(s.artifactsDir, sessionID)
}

func (s *Store) SlidesDir(sessionID string) string {
	return filepath.Join(s.ArtifactDir(sessionID), SlidesDirName)
}

// SessionExists reports whether the session upload directory exists.
func (s *Store) SessionExists(sessionID string) bool {
	info, err := os.Stat(s.UploadDir(sessionID))
	return err == nil && info.IsDir()
}

// CreateSession creates the upload directory for a new session.
func (s *Store) CreateSession(sessionID string) error {
	return os.MkdirAll(s.UploadDir(sessionID), 0o755)
}

// RemoveSession deletes both the uploads and the artifacts of a session.
func (s *Store) RemoveSession(sessionID string) error {
	if err := os.RemoveAll(s.UploadDir(sessionID)); err != nil {
		return err
	}
	return os.RemoveAll(s.ArtifactDir(sessionID))
}

// EnsureArtifactDir creates the output directory for a session run.
func (s *Store) EnsureArtifactDir(sessionID string) error {
	return os.MkdirAll(s.ArtifactDir(sessionID), 0o755)
}

// SaveUpload stores an uploaded file under the session upload directory.
// The name is reduced to its base to keep writes inside the session dir.
func (s *Store) SaveUpload(sessionID string, name string, r io.Reader) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}

	dest := filepath.Join(s.UploadDir(sessionID), name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return dest, nil
}

// FindPresentation locates the uploaded deck by trying the candidate
// names in order.
func (s *Store) FindPresentation(sessionID string) (string, error) {
	return s.findUpload(sessionID, presentationCandidates, "presentation")
}

// FindRecording locates the uploaded speech recording.
func (s *Store) FindRecording(sessionID string) (string, error) {
	return s.findUpload(sessionID, recordingCandidates, "audio/video")
}

// FindScript locates the optional uploaded speech script. Absence is not
// an error for callers; they receive an empty path.
func (s *Store) FindScript(sessionID string) string {
	path, err := s.findUpload(sessionID, scriptCandidates, "script")
	if err != nil {
		return ""
	}
	return path
}

func (s *Store) findUpload(sessionID string, candidates []string, kind string) (string, error) {
	dir := s.UploadDir(sessionID)
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s not found in session %s", ErrInputNotFound, kind, sessionID)
}

// WriteJSON persists v as indented JSON under the session artifact dir.
func (s *Store) WriteJSON(sessionID string, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(s.ArtifactDir(sessionID), name), data, 0o644)
}

// ReadJSON loads a JSON artifact into v. Returns os.ErrNotExist wrapped
// when the artifact has not been produced.
func (s *Store) ReadJSON(sessionID string, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.ArtifactDir(sessionID), name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ReadRaw returns the raw bytes of an artifact.
func (s *Store) ReadRaw(sessionID string, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.ArtifactDir(sessionID), name))
}

// WriteText persists a text artifact.
func (s *Store) WriteText(sessionID string, name string, text string) error {
	return os.WriteFile(filepath.Join(s.ArtifactDir(sessionID), name), []byte(text), 0o644)
}

// ReadUploadJSON loads a JSON file from the upload dir (meta.json,
// data.json). A missing file yields the zero value, not an error: both
// files are optional input.
func (s *Store) ReadUploadJSON(sessionID string, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.UploadDir(sessionID), name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}
