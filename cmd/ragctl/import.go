package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/ingestion"
)

var (
	importSchool     string
	importTargetSize int
)

var importCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Embed and store documents from a YAML file",
	Long: `Imports documents for one school. Each document carries either
pre-split chunks or raw text, which is split at sentence boundaries.
Chunks are embedded with the configured Ollama model and written to the
store, and to Qdrant when VECTOR_BACKEND=qdrant.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadImportFile(args[0])
		if err != nil {
			return err
		}
		raw, err := schoolFor(importSchool, f.SchoolID)
		if err != nil {
			return err
		}
		schoolID, err := parseSchoolID(raw)
		if err != nil {
			return err
		}

		return withStores(cmd.Context(), func(s *app.Stores) error {
			if _, err := s.Schools.GetSchool(cmd.Context(), schoolID); err != nil {
				return fmt.Errorf("school %s: %w", schoolID, err)
			}
			var opts []ingestion.PipelineOption
			if importTargetSize > 0 {
				chunking := ingestion.DefaultChunkerConfig()
				chunking.TargetSize = importTargetSize
				chunking.MaxSize = 2 * importTargetSize
				opts = append(opts, ingestion.WithChunker(chunking))
			}
			pipeline, err := app.NewPipeline(cfg, s, logger, opts...)
			if err != nil {
				return err
			}

			chunks := 0
			for i, doc := range f.Documents {
				res, err := pipeline.Ingest(cmd.Context(), schoolID, doc.input())
				if err != nil {
					return fmt.Errorf("document %d: %w", i+1, err)
				}
				chunks += res.Stats.ChunkCount
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d chunks  %s\n", res.DocumentID, res.Stats.ChunkCount, displayName(doc))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d documents, %d chunks.\n", len(f.Documents), chunks)
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importSchool, "school", "", "school id (overrides school_id in the file)")
	importCmd.Flags().IntVar(&importTargetSize, "chunk-size", 0, "target chunk size in characters for raw text")
	rootCmd.AddCommand(importCmd)
}

func displayName(d documentEntry) string {
	if d.FileName != "" {
		return d.FileName
	}
	return d.SourceURL
}
