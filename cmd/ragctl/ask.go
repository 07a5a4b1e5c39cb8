package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/retrieval"
)

var (
	askSchool string
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question the way ragd would",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schoolID, err := parseSchoolID(askSchool)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")

		return withStores(cmd.Context(), func(s *app.Stores) error {
			engine, err := app.NewEngine(cfg, s, logger)
			if err != nil {
				return err
			}
			resp, err := engine.Answer(cmd.Context(), question, schoolID)
			if err != nil {
				return err
			}
			if askJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal response: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printResponse(cmd, resp)
			return nil
		})
	},
}

func init() {
	askCmd.Flags().StringVar(&askSchool, "school", "", "school id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the response as JSON")
	askCmd.MarkFlagRequired("school")
	rootCmd.AddCommand(askCmd)
}

func printResponse(cmd *cobra.Command, resp retrieval.Response) {
	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "strategy=%s confidence=%.2f fallback=%t\n", resp.SearchStrategy, resp.ConfidenceScore, resp.FallbackUsed)
	if resp.Category != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "category=%s\n", *resp.Category)
	}
	for _, src := range resp.Sources {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s (%s) similarity=%.3f\n", src.Rank, src.Source, src.Department, src.Similarity)
	}
}
