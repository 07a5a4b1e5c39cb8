package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
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
	c := repository.DefaultContact{SchoolID: schoolID}
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT category, department, contact_info
		FROM default_contacts
		WHERE school_id = ? AND category = ?
	`, schoolID.String(), category).Scan(&c.Category, &c.Department, &c.ContactInfo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default contact: %w", err)
	}
	return &c, nil
}

// UpsertDefaultContact creates or replaces the contact of a (school, category) pair
func (r *ContactRepo) UpsertDefaultContact(ctx context.Context, c *repository.DefaultContact) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO default_contacts (school_id, category, department, contact_info)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (school_id, category)
		DO UPDATE SET department = excluded.department, contact_info = excluded.contact_info
	`, c.SchoolID.String(), c.Category, c.Department, c.ContactInfo)
	if err != nil {
		return fmt.Errorf("failed to upsert default contact: %w", err)
	}
	return nil
}

// Ensure ContactRepo implements the interface
var _ repository.ContactStore = (*ContactRepo)(nil)
