// Package evaluate joins search results with ground-truth labels to produce
// ranked match records and precision-at-K.
package evaluate

import (
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/labels"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/vector"
)

// Evaluator marks search results as hits when the matched image shares at
// least one category with the query. Images missing from the label index are
// treated as having an empty category set (always a non-hit on that side)
// and logged as warnings, never errors.
type Evaluator struct {
	labels *labels.Index
	logger *zap.Logger
}

// New creates an evaluator. logger may be nil to disable warnings.
func New(idx *labels.Index, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{labels: idx, logger: logger}
}

// QueryCategories returns the query's category set and its rendered string.
func (e *Evaluator) QueryCategories(queryPath string) (labels.Set, string) {
	cats := e.labels.CategoriesFor(queryPath)
	if len(cats) == 0 {
		e.logger.Warn("query image has no annotation entry", zap.String("path", queryPath))
	}
	return cats, e.labels.CategoryString(cats)
}

// Evaluate produces one match record per search result, ranked 1-based in
// result order, and the precision over the returned results. With fewer than
// k results the denominator is the returned count, a reportable degenerate
// case rather than an error.
func (e *Evaluator) Evaluate(queryPath string, results []vector.Result) ([]*models.Match, float64) {
	queryCats, _ := e.QueryCategories(queryPath)

	matches := make([]*models.Match, 0, len(results))
	hits := 0
	for i, r := range results {
		cats := e.labels.CategoriesFor(r.Path)
		if len(cats) == 0 {
			e.logger.Warn("matched image has no annotation entry", zap.String("path", r.Path))
		}
		hit := queryCats.Intersects(cats)
		if hit {
			hits++
		}
		matches = append(matches, &models.Match{
			Rank:       i + 1,
			Path:       r.Path,
			Distance:   r.Distance,
			Categories: e.labels.CategoryString(cats),
			Hit:        hit,
		})
	}

	if len(matches) == 0 {
		return matches, 0
	}
	return matches, float64(hits) / float64(len(matches))
}
