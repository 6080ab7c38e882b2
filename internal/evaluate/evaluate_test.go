package evaluate

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/labels"
	"github.com/hyperjump/miru/internal/vector"
)

const testAnnotations = `{
	"categories": [
		{"id": 1, "name": "cat"},
		{"id": 2, "name": "sofa"},
		{"id": 3, "name": "tree"}
	],
	"images": [
		{"id": 1, "file_name": "query.jpg"},
		{"id": 2, "file_name": "m1.jpg"},
		{"id": 3, "file_name": "m2.jpg"},
		{"id": 4, "file_name": "m3.jpg"},
		{"id": 5, "file_name": "m4.jpg"},
		{"id": 6, "file_name": "m5.jpg"}
	],
	"annotations": [
		{"image_id": 1, "category_id": 1},
		{"image_id": 1, "category_id": 2},
		{"image_id": 2, "category_id": 1},
		{"image_id": 3, "category_id": 3},
		{"image_id": 4, "category_id": 2},
		{"image_id": 5, "category_id": 1},
		{"image_id": 6, "category_id": 3}
	]
}`

func testLabelIndex(t *testing.T) *labels.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ann.json")
	if err := os.WriteFile(path, []byte(testAnnotations), 0600); err != nil {
		t.Fatal(err)
	}
	ix := labels.NewIndex()
	if err := ix.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestEvaluate_hitsAndPrecision(t *testing.T) {
	e := New(testLabelIndex(t), nil)

	// Query has {cat, sofa}. m1 (cat), m3 (sofa), m4 (cat) are hits;
	// m2 and m5 (tree) are not: precision@5 = 3/5.
	results := []vector.Result{
		{Path: "m1.jpg", Distance: 0.1},
		{Path: "m2.jpg", Distance: 0.2},
		{Path: "m3.jpg", Distance: 0.3},
		{Path: "m4.jpg", Distance: 0.4},
		{Path: "m5.jpg", Distance: 0.5},
	}
	matches, precision := e.Evaluate("query.jpg", results)

	if len(matches) != 5 {
		t.Fatalf("got %d matches, want 5", len(matches))
	}
	wantHits := []bool{true, false, true, true, false}
	for i, m := range matches {
		if m.Rank != i+1 {
			t.Errorf("match %d rank = %d, want %d", i, m.Rank, i+1)
		}
		if m.Hit != wantHits[i] {
			t.Errorf("match %s hit = %v, want %v", m.Path, m.Hit, wantHits[i])
		}
		if m.Distance != results[i].Distance {
			t.Errorf("match %d distance = %v, want %v", i, m.Distance, results[i].Distance)
		}
	}
	if math.Abs(precision-0.6) > 1e-9 {
		t.Errorf("precision = %v, want 0.6", precision)
	}
}

func TestEvaluate_categoriesRendered(t *testing.T) {
	e := New(testLabelIndex(t), nil)
	matches, _ := e.Evaluate("query.jpg", []vector.Result{{Path: "m1.jpg", Distance: 0}})
	if matches[0].Categories != "cat" {
		t.Errorf("Categories = %q, want %q", matches[0].Categories, "cat")
	}
}

func TestEvaluate_missingLabelsNeverHit(t *testing.T) {
	e := New(testLabelIndex(t), nil)

	// Unannotated match against an annotated query.
	matches, precision := e.Evaluate("query.jpg", []vector.Result{{Path: "mystery.jpg", Distance: 0}})
	if matches[0].Hit {
		t.Error("match with no labels must not be a hit")
	}
	if precision != 0 {
		t.Errorf("precision = %v, want 0", precision)
	}

	// Unannotated query against annotated matches.
	matches, _ = e.Evaluate("unknown-query.jpg", []vector.Result{{Path: "m1.jpg", Distance: 0}})
	if matches[0].Hit {
		t.Error("query with no labels must produce no hits")
	}
}

func TestEvaluate_fewerResultsThanK(t *testing.T) {
	e := New(testLabelIndex(t), nil)
	// Two returned results, one hit: precision is over the returned count.
	results := []vector.Result{
		{Path: "m1.jpg", Distance: 0.1},
		{Path: "m2.jpg", Distance: 0.2},
	}
	_, precision := e.Evaluate("query.jpg", results)
	if math.Abs(precision-0.5) > 1e-9 {
		t.Errorf("precision = %v, want 0.5", precision)
	}
}

func TestEvaluate_empty(t *testing.T) {
	e := New(testLabelIndex(t), nil)
	matches, precision := e.Evaluate("query.jpg", nil)
	if len(matches) != 0 || precision != 0 {
		t.Errorf("empty results: matches=%d precision=%v", len(matches), precision)
	}
}

func TestQueryCategories(t *testing.T) {
	e := New(testLabelIndex(t), nil)
	set, str := e.QueryCategories("query.jpg")
	if len(set) != 2 {
		t.Errorf("got %d categories, want 2", len(set))
	}
	if str != "cat|sofa" {
		t.Errorf("category string = %q, want %q", str, "cat|sofa")
	}
}
