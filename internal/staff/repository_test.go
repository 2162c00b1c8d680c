package staff

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestGetProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	staffID := uuid.New()
	mock.ExpectQuery("SELECT id, display_name, is_active, google_calendar_id").
		WithArgs(staffID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "is_active", "google_calendar_id"}).
			AddRow(staffID.String(), "Dana", true, "dana@group.calendar.google.com"))

	repo := NewRepository(db)
	p, err := repo.GetProfile(context.Background(), staffID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p == nil || p.DisplayName != "Dana" || !p.Active {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if !p.CalendarLinked() {
		t.Fatal("expected calendar to be linked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	staffID := uuid.New()
	mock.ExpectQuery("SELECT id, display_name, is_active, google_calendar_id").
		WithArgs(staffID).
		WillReturnError(sql.ErrNoRows)

	repo := NewRepository(db)
	p, err := repo.GetProfile(context.Background(), staffID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestGetProfileNullCalendar(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	staffID := uuid.New()
	mock.ExpectQuery("SELECT id, display_name, is_active, google_calendar_id").
		WithArgs(staffID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "is_active", "google_calendar_id"}).
			AddRow(staffID.String(), "Riley", true, nil))

	repo := NewRepository(db)
	p, err := repo.GetProfile(context.Background(), staffID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.CalendarLinked() {
		t.Fatal("expected no linked calendar")
	}
}

func TestGetWorkingHoursNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	staffID := uuid.New()
	mock.ExpectQuery("SELECT staff_id, weekday, start_minute, end_minute").
		WithArgs(staffID, 7).
		WillReturnError(sql.ErrNoRows)

	repo := NewRepository(db)
	w, err := repo.GetWorkingHours(context.Background(), staffID, 7)
	if err != nil {
		t.Fatalf("GetWorkingHours: %v", err)
	}
	if w != nil {
		t.Fatalf("expected nil working hours, got %+v", w)
	}
}

func TestListForServiceFiltersAndOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	serviceID := uuid.New()
	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery("JOIN service_staff").
		WithArgs(serviceID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "is_active", "google_calendar_id"}).
			AddRow(a.String(), "Alex", true, nil).
			AddRow(b.String(), "Blake", true, "blake@calendar"))

	repo := NewRepository(db)
	profiles, err := repo.ListForService(context.Background(), serviceID, nil)
	if err != nil {
		t.Fatalf("ListForService: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].DisplayName != "Alex" || profiles[1].DisplayName != "Blake" {
		t.Fatalf("unexpected ordering: %+v", profiles)
	}
}
