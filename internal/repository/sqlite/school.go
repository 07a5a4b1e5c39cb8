package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO schools (id, name, created_at) VALUES (?, ?, ?)`,
		school.ID.String(), school.Name, school.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

// GetSchool retrieves a school by ID
func (r *SchoolRepo) GetSchool(ctx context.Context, id uuid.UUID) (*repository.School, error) {
	row := r.db.conn.QueryRowContext(ctx, `SELECT id, name, created_at FROM schools WHERE id = ?`, id.String())
	school, err := scanSchool(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return school, nil
}

// ListSchools retrieves schools with pagination
func (r *SchoolRepo) ListSchools(ctx context.Context, limit, offset int) ([]*repository.School, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, name, created_at FROM schools
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []*repository.School
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, school)
	}
	return schools, rows.Err()
}

func scanSchool(row scanner) (*repository.School, error) {
	var (
		school    repository.School
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &school.Name, &createdAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid school id %q: %w", id, err)
	}
	school.ID = parsed
	school.CreatedAt = time.Unix(0, createdAt).UTC()
	return &school, nil
}

// Ensure SchoolRepo implements the interface
var _ repository.SchoolStore = (*SchoolRepo)(nil)
