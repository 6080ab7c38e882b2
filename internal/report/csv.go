// Package report writes run artifacts: the CSV match report and the top-K
// match image copies.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/miru/internal/models"
)

// csvHeader is the fixed report header; it always precedes data rows.
var csvHeader = []string{
	"method", "feature", "descriptor_mode", "max_images",
	"query_filename", "query_categories",
	"match_rank", "match_filename", "match_categories",
	"shares_label", "distance",
}

// MethodLabel renders the retrieval method label used in artifact names and
// report rows.
func MethodLabel(feature, mode, maxImages string) string {
	return feature + "_" + mode + "_" + maxImages
}

// WriteCSV writes one row per match to path, creating parent directories as
// needed. The header row is always written, even with zero matches.
func WriteCSV(path string, summary *models.RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	method := MethodLabel(summary.Feature, summary.Mode, summary.MaxImages)
	queryName := filepath.Base(summary.QueryPath)
	for _, m := range summary.Matches {
		hit := "0"
		if m.Hit {
			hit = "1"
		}
		row := []string{
			method,
			summary.Feature,
			summary.Mode,
			summary.MaxImages,
			queryName,
			summary.QueryCategories,
			strconv.Itoa(m.Rank),
			filepath.Base(m.Path),
			m.Categories,
			hit,
			strconv.FormatFloat(m.Distance, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", m.Rank, err)
		}
	}
	w.Flush()
	return w.Error()
}
