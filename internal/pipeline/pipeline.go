// Package pipeline wires corpus discovery, the descriptor worker pool, the
// vector index, search, evaluation, and artifact writing into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/corpus"
	"github.com/hyperjump/miru/internal/descriptor"
	"github.com/hyperjump/miru/internal/dispatch"
	"github.com/hyperjump/miru/internal/evaluate"
	"github.com/hyperjump/miru/internal/features"
	"github.com/hyperjump/miru/internal/labels"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/report"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
)

// Fatal pipeline errors; the CLI maps these to a non-zero exit status.
var (
	ErrEmptyCorpus    = errors.New("no images found in corpus directory")
	ErrNothingIndexed = errors.New("no images successfully indexed")
	ErrQueryDecode    = errors.New("could not process query image")
)

// progressInterval controls how often bulk-insert progress is logged.
const progressInterval = 50

// Pipeline holds the components of one indexing-and-query run.
type Pipeline struct {
	cfg     *config.Config
	logger  *zap.Logger
	builder *descriptor.Builder
	labels  *labels.Index
	eval    *evaluate.Evaluator
	cache   *storage.DescriptorCache
	index   *vector.Index

	discovered int
	failed     int
}

// New constructs a pipeline from cfg: feature extractor, descriptor builder,
// label index (annotation files that fail to load are warnings, matching the
// label-miss policy), descriptor cache (when configured), and an empty
// vector index sized to the descriptor dimension.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor, err := features.New(cfg.Descriptor.Feature)
	if err != nil {
		return nil, err
	}
	builder, err := descriptor.NewBuilder(extractor, descriptor.Mode(cfg.Descriptor.Mode), cfg.Descriptor.CellSize)
	if err != nil {
		return nil, err
	}

	labelIndex := labels.NewIndex()
	for _, path := range cfg.Corpus.Annotations {
		if err := labelIndex.LoadFile(path); err != nil {
			logger.Warn("could not load annotation file", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Info("loaded annotations", zap.String("path", path))
	}

	var cache *storage.DescriptorCache
	if cfg.Storage.CachePath != "" {
		cache, err = storage.NewDescriptorCache(cfg.Storage.CachePath)
		if err != nil {
			return nil, fmt.Errorf("open descriptor cache: %w", err)
		}
	}

	index, err := vector.NewIndex(builder.Dim())
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		builder: builder,
		labels:  labelIndex,
		eval:    evaluate.New(labelIndex, logger),
		cache:   cache,
		index:   index,
	}, nil
}

// Index returns the vector index (for serve mode).
func (p *Pipeline) Index() *vector.Index { return p.index }

// Builder returns the descriptor builder (for serve mode).
func (p *Pipeline) Builder() *descriptor.Builder { return p.builder }

// Evaluator returns the label evaluator (for serve mode).
func (p *Pipeline) Evaluator() *evaluate.Evaluator { return p.eval }

// Close releases the descriptor cache, if any.
func (p *Pipeline) Close() error {
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}

// BuildIndex discovers the corpus, computes descriptors on the worker pool,
// and bulk-inserts the successful results. Per-image failures are logged and
// excluded; an empty corpus or an empty index is fatal.
func (p *Pipeline) BuildIndex(ctx context.Context) error {
	paths, err := corpus.Discover(p.cfg.Corpus.Directory, p.cfg.Corpus.Extensions, p.cfg.Corpus.MaxImages)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyCorpus, p.cfg.Corpus.Directory)
	}
	p.discovered = len(paths)

	workers := dispatch.Workers(p.cfg.Descriptor.Workers)
	p.logger.Info("building descriptors",
		zap.Int("images", len(paths)),
		zap.Int("workers", workers),
		zap.String("feature", p.builder.Feature()),
		zap.String("mode", string(p.builder.Mode())),
	)

	results := dispatch.Run(paths, workers, func(path string) ([]float32, error) {
		return p.buildDescriptor(ctx, path)
	})

	for _, r := range results {
		if !r.OK {
			p.failed++
			p.logger.Warn("image skipped", zap.String("path", r.Path), zap.Error(r.Err))
			continue
		}
		if err := p.index.Add(r.Path, r.Descriptor); err != nil {
			return fmt.Errorf("index %s: %w", r.Path, err)
		}
		if n := p.index.Size(); n%progressInterval == 0 {
			p.logger.Info("indexing progress", zap.Int("indexed", n))
		}
	}

	if p.index.Size() == 0 {
		return ErrNothingIndexed
	}
	p.logger.Info("index built", zap.Int("indexed", p.index.Size()), zap.Int("failed", p.failed))

	if p.cfg.Storage.IndexPath != "" {
		if err := p.index.Save(p.cfg.Storage.IndexPath); err != nil {
			p.logger.Warn("could not save index snapshot", zap.Error(err))
		}
	}
	return nil
}

// Run executes the full pipeline: build the index, build the query
// descriptor, search top-K, evaluate against labels, and write the CSV and
// copy artifacts. Artifact failures are logged, never fatal.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	runID := uuid.NewString()
	p.logger.Info("run starting", zap.String("run_id", runID))

	if err := p.BuildIndex(ctx); err != nil {
		return nil, err
	}

	queryPath := p.cfg.Corpus.QueryImage
	queryDesc, err := p.buildDescriptor(ctx, queryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryDecode, queryPath, err)
	}

	results, err := p.index.Search(queryDesc, p.cfg.Search.TopK)
	if err != nil {
		return nil, err
	}

	matches, precision := p.eval.Evaluate(queryPath, results)
	_, queryCatStr := p.eval.QueryCategories(queryPath)

	summary := &models.RunSummary{
		RunID:           runID,
		Feature:         p.builder.Feature(),
		Mode:            string(p.builder.Mode()),
		MaxImages:       p.cfg.Corpus.MaxImagesLabel(),
		QueryPath:       queryPath,
		QueryCategories: queryCatStr,
		Discovered:      p.discovered,
		Indexed:         p.index.Size(),
		Failed:          p.failed,
		Matches:         matches,
		PrecisionAtK:    precision,
	}

	p.writeArtifacts(summary)

	p.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int("matches", len(matches)),
		zap.Float64("precision_at_k", precision),
	)
	return summary, nil
}

// writeArtifacts writes the CSV report and the top-K copies. Each artifact
// failure is isolated: it is logged and the other artifact is still written.
func (p *Pipeline) writeArtifacts(summary *models.RunSummary) {
	method := report.MethodLabel(summary.Feature, summary.Mode, summary.MaxImages)

	csvPath := filepath.Join(p.cfg.Storage.OutputDir, "csv", method+".csv")
	if err := report.WriteCSV(csvPath, summary); err != nil {
		p.logger.Warn("could not write CSV report", zap.String("path", csvPath), zap.Error(err))
	} else {
		p.logger.Info("CSV report written", zap.String("path", csvPath))
	}

	copyDir := filepath.Join(p.cfg.Storage.OutputDir, method)
	if err := report.CopyTopK(copyDir, summary.Matches, p.logger); err != nil {
		p.logger.Warn("could not copy match images", zap.String("dir", copyDir), zap.Error(err))
	} else {
		p.logger.Info("match copies written", zap.String("dir", copyDir))
	}
}

// AddFile builds the descriptor for one image and appends it to the index.
// Already-indexed paths are skipped: the index is append-only and entries
// are never replaced. Used by the serve-mode watcher.
func (p *Pipeline) AddFile(ctx context.Context, path string) error {
	if p.index.Contains(path) {
		p.logger.Debug("path already indexed, skipping", zap.String("path", path))
		return nil
	}
	desc, err := p.buildDescriptor(ctx, path)
	if err != nil {
		return err
	}
	return p.index.Add(path, desc)
}

// buildDescriptor computes one image descriptor, consulting the cache first
// when one is configured. Cache errors degrade to recomputation.
func (p *Pipeline) buildDescriptor(ctx context.Context, path string) ([]float32, error) {
	if p.cache == nil {
		return p.builder.BuildFile(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	mtime := info.ModTime().UnixNano()
	size := info.Size()
	feature := p.builder.Feature()
	mode := string(p.builder.Mode())

	if vec, ok, err := p.cache.Get(ctx, path, feature, mode, mtime, size); err != nil {
		p.logger.Warn("descriptor cache read failed", zap.String("path", path), zap.Error(err))
	} else if ok {
		return vec, nil
	}

	vec, err := p.builder.BuildFile(path)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(ctx, path, feature, mode, mtime, size, vec); err != nil {
		p.logger.Warn("descriptor cache write failed", zap.String("path", path), zap.Error(err))
	}
	return vec, nil
}
