// internal/service/project_registry.go
package service

import (
	"context"
	"sync"

	"investflow-core/internal/util"
)

// ProjectRegistry resolves a project to the founder who owns it. Project CRUD
// lives outside this core; the commitment engine only needs existence checks
// and founder identity for response authorization.
type ProjectRegistry interface {
	// ResolveFounder returns the founder id for a project, or ErrNotFound.
	ResolveFounder(ctx context.Context, projectID string) (string, error)
}

// StaticProjectRegistry is an in-memory ProjectRegistry. Deployments wire a
// client for the real project service; tests and single-binary setups register
// projects directly.
type StaticProjectRegistry struct {
	mu       sync.RWMutex
	founders map[string]string
}

// NewStaticProjectRegistry creates an empty registry.
func NewStaticProjectRegistry() *StaticProjectRegistry {
	return &StaticProjectRegistry{founders: make(map[string]string)}
}

// Register maps a project to its founder.
func (r *StaticProjectRegistry) Register(projectID, founderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.founders[projectID] = founderID
}

// ResolveFounder implements ProjectRegistry.
func (r *StaticProjectRegistry) ResolveFounder(ctx context.Context, projectID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	founderID, ok := r.founders[projectID]
	if !ok {
		return "", util.ErrNotFound
	}
	return founderID, nil
}
