// Package labels loads COCO-style annotation files into a filename to
// category-set mapping used for label-agreement evaluation.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Set is a set of category ids for one image.
type Set map[int]struct{}

// Intersects reports whether the two sets share at least one category id.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// IDs returns the set's category ids in ascending order.
func (s Set) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Index maps image filenames (basenames) to category sets and category ids
// to names. Multiple annotation files merge into one index.
type Index struct {
	imageCats map[string]Set
	catNames  map[int]string
}

// NewIndex creates an empty label index.
func NewIndex() *Index {
	return &Index{
		imageCats: make(map[string]Set),
		catNames:  make(map[int]string),
	}
}

// annotationFile mirrors the subset of the COCO instance-annotation schema
// the index needs.
type annotationFile struct {
	Categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Images []struct {
		ID       int    `json:"id"`
		FileName string `json:"file_name"`
	} `json:"images"`
	Annotations []struct {
		ImageID    int `json:"image_id"`
		CategoryID int `json:"category_id"`
	} `json:"annotations"`
}

// LoadFile parses the annotation file at path and merges it into the index.
func (ix *Index) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read annotation file: %w", err)
	}

	var ann annotationFile
	if err := json.Unmarshal(data, &ann); err != nil {
		return fmt.Errorf("parse annotation file %s: %w", path, err)
	}

	for _, cat := range ann.Categories {
		if cat.ID >= 0 && cat.Name != "" {
			ix.catNames[cat.ID] = cat.Name
		}
	}

	imageFiles := make(map[int]string, len(ann.Images))
	for _, img := range ann.Images {
		if img.ID >= 0 && img.FileName != "" {
			imageFiles[img.ID] = img.FileName
		}
	}

	for _, a := range ann.Annotations {
		if a.ImageID < 0 || a.CategoryID < 0 {
			continue
		}
		fname, ok := imageFiles[a.ImageID]
		if !ok {
			continue
		}
		set, ok := ix.imageCats[fname]
		if !ok {
			set = make(Set)
			ix.imageCats[fname] = set
		}
		set[a.CategoryID] = struct{}{}
	}
	return nil
}

// CategoriesFor returns the category set for the image at path, looked up by
// basename. Returns nil when the image has no annotation entry.
func (ix *Index) CategoriesFor(path string) Set {
	return ix.imageCats[filepath.Base(path)]
}

// CategoryString renders a category set as sorted names joined by "|"
// (e.g. "chair|sink|toilet"). Unknown ids render as "id_<n>".
func (ix *Index) CategoryString(s Set) string {
	names := make([]string, 0, len(s))
	for _, id := range s.IDs() {
		if name, ok := ix.catNames[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, "id_"+strconv.Itoa(id))
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
