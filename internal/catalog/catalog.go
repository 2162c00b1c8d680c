// Package catalog exposes read access to the bookable service definitions.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Service is a bookable, timed service.
type Service struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
	Active          bool
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetService returns the service, or nil when it does not exist.
func (r *Repository) GetService(ctx context.Context, serviceID uuid.UUID) (*Service, error) {
	var s Service
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, is_active
		FROM services WHERE id = $1`, serviceID).Scan(
		&s.ID, &s.Name, &s.DurationMinutes, &s.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: load service: %w", err)
	}
	return &s, nil
}
