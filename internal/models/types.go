// Package models defines core data structures for jobs, matches, and run summaries.
package models

// JobResult is the outcome of building one image descriptor.
// Exactly one worker produces the result for a given input index.
type JobResult struct {
	Path       string
	Descriptor []float32
	OK         bool
	Err        error
}

// Match is one ranked search result joined with ground-truth labels.
type Match struct {
	Rank       int     `json:"rank"`
	Path       string  `json:"path"`
	Distance   float64 `json:"distance"`
	Categories string  `json:"categories"`
	Hit        bool    `json:"hit"`
}

// RunSummary describes one completed index-and-query run.
type RunSummary struct {
	RunID           string   `json:"run_id"`
	Feature         string   `json:"feature"`
	Mode            string   `json:"mode"`
	MaxImages       string   `json:"max_images"`
	QueryPath       string   `json:"query_path"`
	QueryCategories string   `json:"query_categories"`
	Discovered      int      `json:"discovered"`
	Indexed         int      `json:"indexed"`
	Failed          int      `json:"failed"`
	Matches         []*Match `json:"matches"`
	PrecisionAtK    float64  `json:"precision_at_k"`
}
