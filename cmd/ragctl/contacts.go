package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/repository"
)

var contactsSchool string

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage per-category default contacts",
}

var contactsImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Create or replace default contacts from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadContactsFile(args[0])
		if err != nil {
			return err
		}
		raw, err := schoolFor(contactsSchool, f.SchoolID)
		if err != nil {
			return err
		}
		schoolID, err := parseSchoolID(raw)
		if err != nil {
			return err
		}

		return withStores(cmd.Context(), func(s *app.Stores) error {
			if _, err := s.Schools.GetSchool(cmd.Context(), schoolID); err != nil {
				return err
			}
			for _, c := range f.Contacts {
				err := s.Contacts.UpsertDefaultContact(cmd.Context(), &repository.DefaultContact{
					SchoolID:    schoolID,
					Category:    c.Category,
					Department:  c.Department,
					ContactInfo: c.ContactInfo,
				})
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d contacts.\n", len(f.Contacts))
			return nil
		})
	},
}

func init() {
	contactsImportCmd.Flags().StringVar(&contactsSchool, "school", "", "school id (overrides school_id in the file)")
	contactsCmd.AddCommand(contactsImportCmd)
	rootCmd.AddCommand(contactsCmd)
}
