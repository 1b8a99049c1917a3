// Package service provides business logic for backend-domain lookup and
// per-device flow allocation, delegating persistence to repository
// interfaces.
package service

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/onboardkit/onboardkit/internal/models"
)

// ErrProjectNotFound indicates an unknown api key or a key/project mismatch.
var ErrProjectNotFound = errors.New("project not found")

// ErrNoActiveFlow indicates the project has no flow eligible for allocation.
var ErrNoActiveFlow = errors.New("no active flow configured")

// FlowRepository defines the persistence operations needed by the resolve
// services.
type FlowRepository interface {
	// ProjectByAPIKey fetches the project owning the api key, or (nil, nil)
	// if none matches.
	ProjectByAPIKey(ctx context.Context, apiKey string) (*models.Project, error)
	// ActiveFlows fetches the allocation-eligible flows of a project.
	ActiveFlows(ctx context.Context, projectID string) ([]models.Flow, error)
	// Assignment fetches the device's existing assignment, or (nil, nil).
	Assignment(ctx context.Context, deviceID, projectID string) (*models.Assignment, error)
	// SaveAssignment inserts or replaces a device's assignment.
	SaveAssignment(ctx context.Context, a models.Assignment) error
	// TouchAssignment refreshes the last_seen timestamp of an assignment.
	TouchAssignment(ctx context.Context, deviceID, projectID string, when time.Time) error
}

// ConfigService resolves backend domains for authenticated projects.
type ConfigService struct {
	repo FlowRepository
}

// NewConfigService constructs a ConfigService with the provided repository.
func NewConfigService(repo FlowRepository) *ConfigService {
	return &ConfigService{repo: repo}
}

// BackendDomain returns the backend domain of the project identified by
// apiKey. The projectID must match the key's project; otherwise, or if the
// key is unknown, ErrProjectNotFound is returned.
func (s *ConfigService) BackendDomain(ctx context.Context, apiKey, projectID string) (string, error) {
	p, err := s.repo.ProjectByAPIKey(ctx, apiKey)
	if err != nil {
		return "", err
	}
	if p == nil || p.ID != projectID {
		return "", ErrProjectNotFound
	}
	return p.BackendDomain, nil
}

// ResolveService allocates flows to devices. Allocation is sticky: once a
// device has been assigned a flow it keeps getting the same one, which is
// what makes A/B variants consistent per device.
type ResolveService struct {
	repo FlowRepository
	// now is the clock, overridable in tests.
	now func() time.Time
}

// NewResolveService constructs a ResolveService with the provided repository.
func NewResolveService(repo FlowRepository) *ResolveService {
	return &ResolveService{repo: repo, now: time.Now}
}

// Resolve returns the flow id the given device should see for the project.
// An existing assignment wins; otherwise the device is hashed over the
// project's weighted active flows and the resulting assignment is persisted.
// Returns ErrNoActiveFlow if the project has no active flows.
func (s *ResolveService) Resolve(ctx context.Context, projectID, deviceID string) (string, error) {
	existing, err := s.repo.Assignment(ctx, deviceID, projectID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		// Keeping last_seen fresh is best effort; a stale timestamp only
		// risks an early re-allocation by the cleaner.
		_ = s.repo.TouchAssignment(ctx, deviceID, projectID, s.now())
		return existing.FlowID, nil
	}

	flows, err := s.repo.ActiveFlows(ctx, projectID)
	if err != nil {
		return "", err
	}
	if len(flows) == 0 {
		return "", ErrNoActiveFlow
	}

	flow := pickFlow(flows, deviceID)
	now := s.now()
	if err := s.repo.SaveAssignment(ctx, models.Assignment{
		DeviceID:   deviceID,
		ProjectID:  projectID,
		FlowID:     flow.ID,
		AssignedAt: now,
		LastSeen:   now,
	}); err != nil {
		return "", err
	}
	return flow.ID, nil
}

// pickFlow buckets the device id over the cumulative flow weights. The hash
// is stable, so the same device always lands in the same bucket for an
// unchanged flow set.
func pickFlow(flows []models.Flow, deviceID string) models.Flow {
	total := 0
	for _, f := range flows {
		total += weightOf(f)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	bucket := int(h.Sum32() % uint32(total))

	for _, f := range flows {
		bucket -= weightOf(f)
		if bucket < 0 {
			return f
		}
	}
	return flows[len(flows)-1]
}

func weightOf(f models.Flow) int {
	if f.Weight < 1 {
		return 1
	}
	return f.Weight
}
