package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/repository"
)

var (
	schoolsLimit  int
	schoolsOffset int
)

var schoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "Manage schools (tenants)",
}

var schoolsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Register a school and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		school := &repository.School{
			ID:        uuid.New(),
			Name:      args[0],
			CreatedAt: time.Now().UTC(),
		}
		return withStores(cmd.Context(), func(s *app.Stores) error {
			if err := s.Schools.CreateSchool(cmd.Context(), school); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), school.ID)
			return nil
		})
	},
}

var schoolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered schools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStores(cmd.Context(), func(s *app.Stores) error {
			schools, err := s.Schools.ListSchools(cmd.Context(), schoolsLimit, schoolsOffset)
			if err != nil {
				return err
			}
			if len(schools) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No schools registered.")
				return nil
			}
			for _, school := range schools {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", school.ID, school.CreatedAt.Format(time.DateOnly), school.Name)
			}
			return nil
		})
	},
}

func init() {
	schoolsListCmd.Flags().IntVarP(&schoolsLimit, "limit", "n", 50, "maximum number of schools")
	schoolsListCmd.Flags().IntVar(&schoolsOffset, "offset", 0, "number of schools to skip")
	schoolsCmd.AddCommand(schoolsCreateCmd, schoolsListCmd)
	rootCmd.AddCommand(schoolsCmd)
}
