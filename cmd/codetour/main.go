package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"codetour/internal/config"
	"codetour/internal/crawler"
	"codetour/internal/enrich"
	"codetour/internal/graph"
	"codetour/internal/pipeline"
	"codetour/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "codetour",
		Short: "Repository structure analyzer and guided tour generator",
	}
	outputDir    string
	dbPath       string
	withEnrich   bool
	exportOutDir string
	exportDBPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	analyzeCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "out", "Directory for generated artifacts")
	analyzeCmd.Flags().StringVarP(&dbPath, "db", "d", "", "Optional SQLite database to persist the model")
	analyzeCmd.Flags().BoolVar(&withEnrich, "enrich", false, "Annotate the model (uses the AI key when configured)")

	exportCmd.Flags().StringVarP(&exportOutDir, "output-dir", "o", "out", "Directory for generated artifacts")
	exportCmd.Flags().StringVarP(&exportDBPath, "db", "d", "codetour.db", "SQLite database holding a saved model")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository and write graph, tour, and flowchart documents",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig("config.yaml")
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()

		job := &pipeline.Job{
			Root:      args[0],
			OutputDir: outputDir,
			Language:  cfg.Analyzer.Language,
			Workers:   cfg.Analyzer.Workers,
			Enrich:    withEnrich,
		}

		// Enrichment without a key falls back to template annotations; the
		// core output is identical either way.
		if withEnrich && cfg.AI.APIKey != "" {
			annotator, err := enrich.NewGeminiAnnotator(ctx, cfg.AI.APIKey, cfg.AI.Model)
			if err != nil {
				fmt.Printf("Annotator unavailable, using templates: %v\n", err)
			} else {
				job.Annotator = annotator
			}
		}

		if dbPath != "" {
			store, err := storage.NewSQLiteStore(dbPath)
			if err != nil {
				log.Fatalf("Failed to open database: %v", err)
			}
			defer store.Close()
			job.Store = store
		}

		result, err := job.Run(ctx)
		if err != nil {
			if errors.Is(err, crawler.ErrRootNotFound) || errors.Is(err, crawler.ErrNotDirectory) || errors.Is(err, crawler.ErrNoSourceFiles) {
				log.Fatalf("Ingestion failed: %v", err)
			}
			var consistency *graph.ConsistencyError
			if errors.As(err, &consistency) {
				log.Fatalf("Internal defect, no model emitted: %v", err)
			}
			log.Fatalf("Analysis failed: %v", err)
		}

		fmt.Printf("Analyzed %d files (%d symbols, %d call edges, %d dependency edges)\n",
			len(result.Model.Files), len(result.Model.Symbols),
			len(result.Model.CallEdges), len(result.Model.DependencyEdges))
		if len(result.FailedFiles) > 0 {
			fmt.Printf("%d files could not be parsed and are marked failed:\n", len(result.FailedFiles))
			for _, f := range result.FailedFiles {
				fmt.Printf("  - %s\n", f)
			}
		}
		fmt.Printf("Artifacts written to %s\n", outputDir)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export artifacts from a previously saved model",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := storage.NewSQLiteStore(exportDBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		model, plan, err := store.LoadModel(ctx)
		if err != nil {
			log.Fatalf("Failed to load model: %v", err)
		}

		if err := pipeline.WriteArtifacts(exportOutDir, model, plan, nil); err != nil {
			log.Fatalf("Failed to write artifacts: %v", err)
		}

		fmt.Printf("Artifacts written to %s\n", exportOutDir)
	},
}
