package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/labels"
)

func TestBuildCorpus_writesExpectedImages(t *testing.T) {
	c, err := BuildCorpus(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if c.TotalImages != 12 {
		t.Errorf("TotalImages = %d, want 12", c.TotalImages)
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 12 {
		t.Errorf("corpus dir holds %d files, want 12", len(entries))
	}
	if _, err := os.Stat(filepath.Join(c.Dir, c.ExpectedTop)); err != nil {
		t.Errorf("expected top image missing: %v", err)
	}
	if _, err := os.Stat(c.QueryPath); err != nil {
		t.Errorf("query image missing: %v", err)
	}
}

func TestBuildCorpus_annotationsLoadable(t *testing.T) {
	c, err := BuildCorpus(t.TempDir(), 2)
	if err != nil {
		t.Fatal(err)
	}

	ix := labels.NewIndex()
	if err := ix.LoadFile(c.AnnotationsPath); err != nil {
		t.Fatal(err)
	}

	queryCats := ix.CategoriesFor(c.QueryPath)
	topCats := ix.CategoriesFor(c.ExpectedTop)
	if len(queryCats) != 1 || len(topCats) != 1 {
		t.Fatalf("query/top categories = %d/%d, want 1/1", len(queryCats), len(topCats))
	}
	if !queryCats.Intersects(topCats) {
		t.Error("query and its duplicate must share the class label")
	}
	if ix.CategoryString(queryCats) != "red" {
		t.Errorf("query class = %q, want red", ix.CategoryString(queryCats))
	}

	otherCats := ix.CategoriesFor("green_00.png")
	if queryCats.Intersects(otherCats) {
		t.Error("red query must not share a label with a green image")
	}
}
