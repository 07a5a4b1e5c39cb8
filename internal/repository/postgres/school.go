package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/campusrag/internal/repository"
)

// SchoolRepo implements repository.SchoolStore
type SchoolRepo struct {
	db *DB
}

// NewSchoolRepo creates a new school repository
func NewSchoolRepo(db *DB) *SchoolRepo {
	return &SchoolRepo{db: db}
}

// CreateSchool creates a new school
func (r *SchoolRepo) CreateSchool(ctx context.Context, school *repository.School) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO schools (id, name, created_at) VALUES ($1, $2, $3)`,
		school.ID, school.Name, school.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

// GetSchool retrieves a school by ID
func (r *SchoolRepo) GetSchool(ctx context.Context, id uuid.UUID) (*repository.School, error) {
	var school repository.School
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM schools WHERE id = $1`, id,
	).Scan(&school.ID, &school.Name, &school.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return &school, nil
}

// ListSchools retrieves schools with pagination
func (r *SchoolRepo) ListSchools(ctx context.Context, limit, offset int) ([]*repository.School, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, created_at
		FROM schools
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []*repository.School
	for rows.Next() {
		var school repository.School
		if err := rows.Scan(&school.ID, &school.Name, &school.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, &school)
	}
	return schools, rows.Err()
}

// Ensure SchoolRepo implements the interface
var _ repository.SchoolStore = (*SchoolRepo)(nil)
