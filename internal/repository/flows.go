// Package repository provides persistence for projects, flows, and device
// assignments over database/sql, supporting both store dialects.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/onboardkit/onboardkit/internal/db"
	"github.com/onboardkit/onboardkit/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// FlowRepository implements flow-resolution persistence against the backend
// store.
type FlowRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Dialect selects the placeholder style of the underlying driver.
	Dialect db.Dialect
}

// NewFlowRepository creates a FlowRepository using the provided handle and
// dialect, as returned by db.Init.
func NewFlowRepository(handle *sql.DB, dialect db.Dialect) *FlowRepository {
	return &FlowRepository{DB: handle, Dialect: dialect}
}

// rebind converts $N placeholders to the driver's style. Queries must use
// placeholders in ascending order without reuse.
func (r *FlowRepository) rebind(query string) string {
	if r.Dialect == db.SQLite {
		return placeholderPattern.ReplaceAllString(query, "?")
	}
	return query
}

// ProjectByAPIKey fetches the project owning the given api key.
// Returns (nil, nil) if no project matches.
func (r *FlowRepository) ProjectByAPIKey(ctx context.Context, apiKey string) (*models.Project, error) {
	var p models.Project
	err := r.DB.QueryRowContext(ctx, r.rebind(`
		SELECT id, api_key, backend_domain FROM projects WHERE api_key = $1
	`), apiKey).Scan(&p.ID, &p.APIKey, &p.BackendDomain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ProjectByAPIKey: %w", err)
	}
	return &p, nil
}

// ActiveFlows fetches the flows currently eligible for allocation in the
// given project, in stable id order.
func (r *FlowRepository) ActiveFlows(ctx context.Context, projectID string) ([]models.Flow, error) {
	rows, err := r.DB.QueryContext(ctx, r.rebind(`
		SELECT id, project_id, active, weight FROM flows WHERE project_id = $1 AND active = TRUE ORDER BY id
	`), projectID)
	if err != nil {
		return nil, fmt.Errorf("ActiveFlows: %w", err)
	}
	defer rows.Close()

	var flows []models.Flow
	for rows.Next() {
		var f models.Flow
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Active, &f.Weight); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ActiveFlows rows: %w", err)
	}
	return flows, nil
}

// Assignment fetches the flow assignment for a device within a project.
// Returns (nil, nil) if the device has no assignment yet.
func (r *FlowRepository) Assignment(ctx context.Context, deviceID, projectID string) (*models.Assignment, error) {
	var a models.Assignment
	err := r.DB.QueryRowContext(ctx, r.rebind(`
		SELECT device_id, project_id, flow_id, assigned_at, last_seen
		  FROM assignments WHERE device_id = $1 AND project_id = $2
	`), deviceID, projectID).Scan(&a.DeviceID, &a.ProjectID, &a.FlowID, &a.AssignedAt, &a.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Assignment: %w", err)
	}
	return &a, nil
}

// SaveAssignment inserts or replaces the device's assignment for a project.
func (r *FlowRepository) SaveAssignment(ctx context.Context, a models.Assignment) error {
	_, err := r.DB.ExecContext(ctx, r.rebind(`
		INSERT INTO assignments (device_id, project_id, flow_id, assigned_at, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, project_id) DO UPDATE SET
			flow_id = EXCLUDED.flow_id,
			last_seen = EXCLUDED.last_seen
	`), a.DeviceID, a.ProjectID, a.FlowID, a.AssignedAt, a.LastSeen)
	if err != nil {
		return fmt.Errorf("SaveAssignment: %w", err)
	}
	return nil
}

// TouchAssignment refreshes the last_seen timestamp of an existing
// assignment so the cleaner keeps it alive.
func (r *FlowRepository) TouchAssignment(ctx context.Context, deviceID, projectID string, when time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.rebind(`
		UPDATE assignments SET last_seen = $1 WHERE device_id = $2 AND project_id = $3
	`), when, deviceID, projectID)
	if err != nil {
		return fmt.Errorf("TouchAssignment: %w", err)
	}
	return nil
}
