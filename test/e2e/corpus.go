package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Corpus describes a generated on-disk image corpus with a query whose best
// match is known in advance.
type Corpus struct {
	// Dir holds the corpus images.
	Dir string
	// QueryPath is an image pixel-identical to ExpectedTop.
	QueryPath string
	// AnnotationsPath labels every image with its color class.
	AnnotationsPath string
	// ExpectedTop is the basename of the corpus image the query duplicates.
	ExpectedTop string
	// TotalImages is the number of corpus images written.
	TotalImages int
}

// BuildCorpus writes perClass images per color class under dir plus a query
// image duplicating the first red image, and a COCO-style annotations file
// labeling each image with its class.
func BuildCorpus(dir string, perClass int) (*Corpus, error) {
	corpusDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(corpusDir, 0755); err != nil {
		return nil, err
	}

	type annImage struct {
		ID       int    `json:"id"`
		FileName string `json:"file_name"`
	}
	type annCategory struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	type annEntry struct {
		ImageID    int `json:"image_id"`
		CategoryID int `json:"category_id"`
	}

	var (
		images      []annImage
		annotations []annEntry
		categories  []annCategory
	)
	imageID := 0
	for ci, class := range classes {
		categories = append(categories, annCategory{ID: ci + 1, Name: class.name})
		for i := 0; i < perClass; i++ {
			name := fmt.Sprintf("%s_%02d.png", class.name, i)
			if err := WriteCheckered(filepath.Join(corpusDir, name), class.col, i); err != nil {
				return nil, err
			}
			imageID++
			images = append(images, annImage{ID: imageID, FileName: name})
			annotations = append(annotations, annEntry{ImageID: imageID, CategoryID: ci + 1})
		}
	}

	queryPath := filepath.Join(dir, "query.png")
	if err := WriteCheckered(queryPath, classes[0].col, 0); err != nil {
		return nil, err
	}
	imageID++
	images = append(images, annImage{ID: imageID, FileName: "query.png"})
	annotations = append(annotations, annEntry{ImageID: imageID, CategoryID: 1})

	annPath := filepath.Join(dir, "instances.json")
	if err := writeJSON(annPath, map[string]interface{}{
		"categories":  categories,
		"images":      images,
		"annotations": annotations,
	}); err != nil {
		return nil, err
	}

	return &Corpus{
		Dir:             corpusDir,
		QueryPath:       queryPath,
		AnnotationsPath: annPath,
		ExpectedTop:     "red_00.png",
		TotalImages:     len(classes) * perClass,
	}, nil
}

func writeJSON(path string, payload interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
