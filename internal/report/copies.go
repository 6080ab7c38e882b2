package report

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/imaging"
	"github.com/hyperjump/miru/internal/models"
)

// CopyTopK re-reads each matched image and re-encodes it as JPEG into
// outDir, one file per rank (match_<rank>.jpg). A failure on one match is
// logged and skipped; only a failure to create outDir is returned.
func CopyTopK(outDir string, matches []*models.Match, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, m := range matches {
		if err := copyMatch(outDir, m); err != nil {
			logger.Warn("failed to copy match image",
				zap.Int("rank", m.Rank),
				zap.String("path", m.Path),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("saved match copy", zap.Int("rank", m.Rank), zap.Float64("distance", m.Distance))
	}
	return nil
}

func copyMatch(outDir string, m *models.Match) error {
	img, err := imaging.ReadImage(m.Path)
	if err != nil {
		return err
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("match_%d.jpg", m.Rank))
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create copy: %w", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		return fmt.Errorf("encode copy: %w", err)
	}
	return nil
}
