package staff

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetProfile returns the staff profile, or nil when no such staff exists.
func (r *Repository) GetProfile(ctx context.Context, staffID uuid.UUID) (*Profile, error) {
	var p Profile
	var calendarID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, display_name, is_active, google_calendar_id
		FROM staff WHERE id = $1`, staffID).Scan(
		&p.ID, &p.DisplayName, &p.Active, &calendarID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staff: load profile: %w", err)
	}
	p.CalendarID = calendarID.String
	return &p, nil
}

// GetWorkingHours returns the working window for the given ISO weekday, or
// nil when the staff member does not work that day.
func (r *Repository) GetWorkingHours(ctx context.Context, staffID uuid.UUID, weekday int) (*WorkingHours, error) {
	var w WorkingHours
	err := r.db.QueryRowContext(ctx, `
		SELECT staff_id, weekday, start_minute, end_minute
		FROM staff_working_hours WHERE staff_id = $1 AND weekday = $2`,
		staffID, weekday).Scan(&w.StaffID, &w.Weekday, &w.StartMinute, &w.EndMinute)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staff: load working hours: %w", err)
	}
	return &w, nil
}

// ListForService returns the active staff assigned to a service, ordered by
// display name then id so the slot merge picks staff deterministically. When
// filter is non-nil only that staff member is considered.
func (r *Repository) ListForService(ctx context.Context, serviceID uuid.UUID, filter *uuid.UUID) ([]Profile, error) {
	query := `
		SELECT s.id, s.display_name, s.is_active, s.google_calendar_id
		FROM staff s
		JOIN service_staff ss ON ss.staff_id = s.id
		WHERE ss.service_id = $1 AND s.is_active`
	args := []any{serviceID}
	if filter != nil {
		query += ` AND s.id = $2`
		args = append(args, *filter)
	}
	query += ` ORDER BY s.display_name, s.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("staff: list for service: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		var calendarID sql.NullString
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Active, &calendarID); err != nil {
			return nil, fmt.Errorf("staff: scan profile: %w", err)
		}
		p.CalendarID = calendarID.String
		out = append(out, p)
	}
	if out == nil {
		out = []Profile{}
	}
	return out, rows.Err()
}
