// Package pipeline runs one repository analysis end to end:
// discover → parallel extraction → resolve → build → plan → write.
// Extraction is the only parallel stage; everything after it is a barrier
// that needs the complete output of the previous stage.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"codetour/internal/crawler"
	"codetour/internal/enrich"
	"codetour/internal/extractor"
	"codetour/internal/flowchart"
	"codetour/internal/graph"
	"codetour/internal/planner"
	"codetour/internal/resolver"
	"codetour/internal/storage"
)

// Artifact file names written to the output directory.
const (
	GraphFileName       = "graph.json"
	TourFileName        = "tour.json"
	FlowchartFileName   = "flowchart.md"
	AnnotationsFileName = "annotations.json"
)

// Job describes one analysis run. Jobs are independent; nothing is shared
// between two jobs.
type Job struct {
	Root      string
	OutputDir string
	Language  string
	Workers   int

	// Annotator is optional. When nil and Enrich is set, deterministic
	// template annotations are produced instead.
	Enrich    bool
	Annotator enrich.Annotator

	// Store is optional. When set, the finished model and tour plan are
	// persisted after the artifacts are written.
	Store *storage.SQLiteStore
}

// Result carries the immutable artifacts of a finished job.
type Result struct {
	Model       *graph.KnowledgeModel
	Plan        *planner.TourPlan
	Annotations *enrich.Annotations
	FailedFiles []string
}

// Run executes the pipeline. It fails only on ingestion faults, internal
// consistency defects, artifact write errors, or cancellation; per-file
// parse failures are recorded in the model and never abort the job.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	ext, err := extractor.NewExtractor(j.Language)
	if err != nil {
		return nil, err
	}

	files, err := j.discoverStage(ext)
	if err != nil {
		return nil, err
	}

	facts, err := j.extractStage(ctx, ext, files)
	if err != nil {
		return nil, err
	}

	// Resolution barrier: requires the complete fact set. From here on the
	// job is sequential; cancellation discards it entirely rather than
	// producing a partial model.
	res := resolver.Resolve(facts)

	model, err := graph.Build(facts, res)
	if err != nil {
		return nil, err
	}

	plan := planner.BuildTourPlan(model)

	result := &Result{Model: model, Plan: plan}
	for _, f := range model.Files {
		if f.Failed {
			result.FailedFiles = append(result.FailedFiles, f.Path)
		}
	}

	// Enrichment runs only after the model is finalized and cannot change
	// it; its absence or failure leaves everything above untouched.
	if j.Enrich {
		result.Annotations = enrich.NewEnricher(j.Annotator).EnrichModel(ctx, model)
	}

	if j.OutputDir != "" {
		if err := j.writeStage(result); err != nil {
			return nil, err
		}
	}

	if j.Store != nil {
		if err := j.Store.SaveModel(ctx, model, plan); err != nil {
			return nil, fmt.Errorf("saving model: %w", err)
		}
	}

	return result, nil
}

func (j *Job) discoverStage(ext *extractor.Extractor) ([]string, error) {
	return crawler.NewCrawler(j.Root, ext.Extensions()).Discover()
}

// extractStage fans extraction out over a bounded worker pool. Results land
// in a fixed slot per file, so worker scheduling cannot affect output order.
// Unreadable files become failed fact records, not errors.
func (j *Job) extractStage(ctx context.Context, ext *extractor.Extractor, files []string) ([]*extractor.FileFacts, error) {
	workers := j.Workers
	if workers <= 0 {
		workers = 1
	}

	facts := make([]*extractor.FileFacts, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			content, err := os.ReadFile(filepath.Join(j.Root, filepath.FromSlash(rel)))
			if err != nil {
				facts[i] = &extractor.FileFacts{Path: rel, Failed: true}
				return nil
			}
			facts[i] = ext.ExtractFile(ctx, rel, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return facts, nil
}

func (j *Job) writeStage(result *Result) error {
	return WriteArtifacts(j.OutputDir, result.Model, result.Plan, result.Annotations)
}

// WriteArtifacts writes the graph, tour, and flowchart documents, plus the
// annotations document when present. Serialization is deterministic: the
// same model produces byte-identical files.
func WriteArtifacts(dir string, model *graph.KnowledgeModel, plan *planner.TourPlan, annotations *enrich.Annotations) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, GraphFileName), model); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, TourFileName), plan); err != nil {
		return err
	}
	mermaid := flowchart.Render(model)
	if err := os.WriteFile(filepath.Join(dir, FlowchartFileName), []byte(mermaid), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", FlowchartFileName, err)
	}
	if annotations != nil {
		if err := writeJSON(filepath.Join(dir, AnnotationsFileName), annotations); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
