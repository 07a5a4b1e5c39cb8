package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/campusrag/internal/repository"
)

// ContactRepo implements repository.ContactStore
type ContactRepo struct {
	db *DB
}

// NewContactRepo creates a new default-contact repository
func NewContactRepo(db *DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// GetDefaultContact looks up the contact for an exact (school, category) pair
func (r *ContactRepo) GetDefaultContact(ctx context.Context, schoolID uuid.UUID, category string) (*repository.DefaultContact, error) {
	query := `
		SELECT school_id, category, department, contact_info
		FROM default_contacts
		WHERE school_id = $1 AND category = $2
	`
	var c repository.DefaultContact
	err := r.db.Pool.QueryRow(ctx, query, schoolID, category).Scan(&c.SchoolID, &c.Category, &c.Department, &c.ContactInfo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default contact: %w", err)
	}
	return &c, nil
}

// UpsertDefaultContact creates or replaces the contact of a (school, category) pair
func (r *ContactRepo) UpsertDefaultContact(ctx context.Context, c *repository.DefaultContact) error {
	query := `
		INSERT INTO default_contacts (school_id, category, department, contact_info)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (school_id, category)
		DO UPDATE SET department = EXCLUDED.department, contact_info = EXCLUDED.contact_info
	`
	if _, err := r.db.Pool.Exec(ctx, query, c.SchoolID, c.Category, c.Department, c.ContactInfo); err != nil {
		return fmt.Errorf("failed to upsert default contact: %w", err)
	}
	return nil
}

// Ensure ContactRepo implements the interface
var _ repository.ContactStore = (*ContactRepo)(nil)
