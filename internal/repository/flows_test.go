package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/onboardkit/onboardkit/internal/db"
	"github.com/onboardkit/onboardkit/internal/models"
)

func setupMock(t *testing.T) (*FlowRepository, sqlmock.Sqlmock, func()) {
	handle, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewFlowRepository(handle, db.Postgres)
	cleanup := func() {
		handle.Close()
	}
	return repo, mock, cleanup
}

func TestProjectByAPIKey_Found(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, api_key, backend_domain FROM projects WHERE api_key = $1`)).
		WithArgs("key1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "api_key", "backend_domain"}).
			AddRow("p1", "key1", "https://x.example"))

	p, err := repo.ProjectByAPIKey(context.Background(), "key1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.ID != "p1" || p.BackendDomain != "https://x.example" {
		t.Errorf("unexpected project: %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProjectByAPIKey_NotFound(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, api_key, backend_domain FROM projects WHERE api_key = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "api_key", "backend_domain"}))

	p, err := repo.ProjectByAPIKey(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil project, got %+v", p)
	}
}

func TestProjectByAPIKey_Error(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, api_key, backend_domain FROM projects WHERE api_key = $1`)).
		WithArgs("key1").
		WillReturnError(errors.New("query fail"))

	_, err := repo.ProjectByAPIKey(context.Background(), "key1")
	if err == nil || !regexp.MustCompile(`ProjectByAPIKey`).MatchString(err.Error()) {
		t.Errorf("expected ProjectByAPIKey error, got %v", err)
	}
}

func TestActiveFlows_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "project_id", "active", "weight"}).
		AddRow("f1", "p1", true, 1).
		AddRow("f2", "p1", true, 3)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, project_id, active, weight FROM flows WHERE project_id = $1 AND active = TRUE ORDER BY id`)).
		WithArgs("p1").
		WillReturnRows(rows)

	flows, err := repo.ActiveFlows(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	if flows[0].ID != "f1" || flows[1].ID != "f2" || flows[1].Weight != 3 {
		t.Errorf("unexpected flows returned: %+v", flows)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAssignment_NotFound(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT device_id, project_id, flow_id").
		WithArgs("d1", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id", "project_id", "flow_id", "assigned_at", "last_seen"}))

	a, err := repo.Assignment(context.Background(), "d1", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil assignment, got %+v", a)
	}
}

func TestSaveAssignment_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs("d1", "p1", "f1", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveAssignment(context.Background(), models.Assignment{
		DeviceID: "d1", ProjectID: "p1", FlowID: "f1", AssignedAt: now, LastSeen: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTouchAssignment_Error(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE assignments SET last_seen").
		WithArgs(sqlmock.AnyArg(), "d1", "p1").
		WillReturnError(errors.New("exec fail"))

	err := repo.TouchAssignment(context.Background(), "d1", "p1", time.Now())
	if err == nil || !regexp.MustCompile(`TouchAssignment`).MatchString(err.Error()) {
		t.Errorf("expected TouchAssignment error, got %v", err)
	}
}

func TestRebind_SQLite(t *testing.T) {
	repo := NewFlowRepository(nil, db.SQLite)
	got := repo.rebind(`SELECT x FROM t WHERE a = $1 AND b = $2`)
	want := `SELECT x FROM t WHERE a = ? AND b = ?`
	if got != want {
		t.Errorf("rebind = %q; want %q", got, want)
	}
}
