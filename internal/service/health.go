package service

import (
	"context"
	"os/exec"

	api "github.com/perfectpitch/pitch-coach/api/v1alpha1"
)

// Health reports whether the external tools and the model credential
// the pipeline depends on are present. The service itself is healthy
// even when a dependency is missing; affected stages degrade or fail
// per run.
func (s *CoachService) Health(ctx context.Context) *api.Health {
	deps := map[string]bool{
		"ffmpeg":         binaryPresent(s.cfg.Tools.Ffmpeg),
		"soffice":        binaryPresent(s.cfg.Tools.Soffice),
		"pdftoppm":       binaryPresent(s.cfg.Tools.Pdftoppm),
		"openai_api_key": s.cfg.LLM.APIKey != "",
	}
	return &api.Health{OK: true, Deps: deps}
}

func binaryPresent(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}
