package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/repository"
)

var (
	documentsSchool string
	documentsLimit  int
	documentsOffset int
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List and delete a school's documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a school's documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schoolID, err := parseSchoolID(documentsSchool)
		if err != nil {
			return err
		}
		return withStores(cmd.Context(), func(s *app.Stores) error {
			docs, err := s.Documents.ListDocuments(cmd.Context(), schoolID, documentsLimit, documentsOffset)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %3d chunks  %-12s %s\n",
					doc.ID, doc.CreatedAt.Format(time.DateOnly), doc.ChunkCount, doc.Category,
					repository.SourceName(doc.FileName, doc.SourceURL))
			}
			return nil
		})
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id...]",
	Short: "Delete documents with their chunks",
	Long: `Deletes documents of one school from the store, and their points from
Qdrant when VECTOR_BACKEND=qdrant. A running ragd keeps serving cached
answers until CACHE_TTL passes or DELETE /v1/cache is called.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schoolID, err := parseSchoolID(documentsSchool)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(args))
		for i, arg := range args {
			if ids[i], err = uuid.Parse(arg); err != nil {
				return fmt.Errorf("invalid document id %q", arg)
			}
		}

		return withStores(cmd.Context(), func(s *app.Stores) error {
			pipeline, err := app.NewPipeline(cfg, s, logger)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := pipeline.Delete(cmd.Context(), schoolID, id); err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return fmt.Errorf("document %s not found for school %s", id, schoolID)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		})
	},
}

func init() {
	documentsCmd.PersistentFlags().StringVar(&documentsSchool, "school", "", "school id")
	documentsCmd.MarkPersistentFlagRequired("school")
	documentsListCmd.Flags().IntVarP(&documentsLimit, "limit", "n", 50, "maximum number of documents")
	documentsListCmd.Flags().IntVar(&documentsOffset, "offset", 0, "number of documents to skip")
	documentsCmd.AddCommand(documentsListCmd, documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}
