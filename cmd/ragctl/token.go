package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/auth"
)

var (
	tokenSchool string
	tokenExpiry time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token scoped to one school",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.AuthEnabled() {
			return errors.New("JWT_SECRET is not set")
		}
		schoolID, err := parseSchoolID(tokenSchool)
		if err != nil {
			return err
		}

		return withStores(cmd.Context(), func(s *app.Stores) error {
			school, err := s.Schools.GetSchool(cmd.Context(), schoolID)
			if err != nil {
				return err
			}
			expiry := tokenExpiry
			if expiry <= 0 {
				expiry = cfg.JWTExpiry
			}
			manager := auth.NewJWTManager(auth.DefaultJWTConfig(cfg.JWTSecret))
			token, err := manager.GenerateTokenWithExpiry(school.ID, school.Name, expiry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSchool, "school", "", "school id")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (default JWT_EXPIRY)")
	tokenCmd.MarkFlagRequired("school")
	rootCmd.AddCommand(tokenCmd)
}
