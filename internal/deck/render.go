package deck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Renderer rasterizes presentations to per-slide PNGs through
// LibreOffice and poppler. Rendering failures are recoverable: the
// pipeline judges on text alone when no images exist.
type Renderer struct {
	SofficeBin  string
	PdftoppmBin string
}

func NewRenderer(sofficeBin, pdftoppmBin string) *Renderer {
	return &Renderer{SofficeBin: sofficeBin, PdftoppmBin: pdftoppmBin}
}

// Render converts the presentation into slide-NNN.png files under
// outDir and returns their paths in slide order.
func (r *Renderer) Render(ctx context.Context, deckPath, outDir string) ([]string, error) {
	log := zap.S().Named("deck")

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating slides dir: %w", err)
	}

	pdfPath, err := r.toPDF(ctx, deckPath, outDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(pdfPath)

	prefix := filepath.Join(outDir, "slide")
	cmd := exec.CommandContext(ctx, r.PdftoppmBin, "-png", "-r", "150", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncateOutput(out))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return nil, fmt.Errorf("no rendered pages under %s", outDir)
	}
	sort.Strings(pages)

	// Normalize poppler's numbering to slide-NNN.png.
	paths := make([]string, 0, len(pages))
	for i, p := range pages {
		dst := filepath.Join(outDir, fmt.Sprintf("slide-%03d.png", i+1))
		if p != dst {
			if err := os.Rename(p, dst); err != nil {
				return nil, fmt.Errorf("renaming page: %w", err)
			}
		}
		paths = append(paths, dst)
	}

	log.Infow("rendered slides", "deck", deckPath, "pages", len(paths))
	return paths, nil
}

func (r *Renderer) toPDF(ctx context.Context, deckPath, outDir string) (string, error) {
	// soffice needs its own profile dir to allow concurrent runs.
	profile, err := os.MkdirTemp("", "soffice-profile-*")
	if err != nil {
		return "", fmt.Errorf("creating soffice profile: %w", err)
	}
	defer os.RemoveAll(profile)

	convertCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(convertCtx, r.SofficeBin,
		"--headless",
		"--norestore",
		"-env:UserInstallation=file://"+profile,
		"--convert-to", "pdf",
		"--outdir", outDir,
		deckPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("soffice convert: %w: %s", err, truncateOutput(out))
	}

	base := strings.TrimSuffix(filepath.Base(deckPath), filepath.Ext(deckPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("soffice produced no pdf for %s", deckPath)
	}
	return pdfPath, nil
}

func truncateOutput(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
