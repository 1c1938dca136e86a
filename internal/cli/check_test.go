package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jude-san/TMU-app/internal/model"
)

func makeStackContainer(name string, role model.ServiceRole, state string, created int64) model.ContainerInfo {
	return model.ContainerInfo{
		ContainerID:   "0123456789abcdef0123456789abcdef",
		ContainerName: name,
		Role:          role,
		State:         state,
		CreatedAt:     created,
	}
}

// TestCheckContainersRunning verifies that the running check passes
// only when every container is in the running state.
func TestCheckContainersRunning(t *testing.T) {
	tests := []struct {
		name       string
		containers []model.ContainerInfo
		wantPass   bool
	}{
		{
			name: "all running",
			containers: []model.ContainerInfo{
				makeStackContainer("todo-app-backend", model.RoleBackend, "running", 100),
				makeStackContainer("todo-app-frontend", model.RoleFrontend, "running", 110),
			},
			wantPass: true,
		},
		{
			name: "one exited",
			containers: []model.ContainerInfo{
				makeStackContainer("todo-app-backend", model.RoleBackend, "exited", 100),
				makeStackContainer("todo-app-frontend", model.RoleFrontend, "running", 110),
			},
			wantPass: false,
		},
		{
			name: "none running",
			containers: []model.ContainerInfo{
				makeStackContainer("todo-app-backend", model.RoleBackend, "exited", 100),
				makeStackContainer("todo-app-frontend", model.RoleFrontend, "created", 110),
			},
			wantPass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := checkContainersRunning(tt.containers)
			assert.Equal(t, tt.wantPass, entry.Passed)
			if !tt.wantPass {
				assert.NotEmpty(t, entry.Detail, "a failed check should say which container is down")
			}
		})
	}
}

// TestCheckCreationOrder verifies the backend-before-frontend creation
// contract, including the equal-timestamp case the engine's second
// granularity produces.
func TestCheckCreationOrder(t *testing.T) {
	tests := []struct {
		name            string
		backendCreated  int64
		frontendCreated int64
		wantPass        bool
	}{
		{name: "backend first", backendCreated: 100, frontendCreated: 160, wantPass: true},
		{name: "same second", backendCreated: 100, frontendCreated: 100, wantPass: true},
		{name: "frontend first", backendCreated: 200, frontendCreated: 100, wantPass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			containers := []model.ContainerInfo{
				makeStackContainer("todo-app-frontend", model.RoleFrontend, "running", tt.frontendCreated),
				makeStackContainer("todo-app-backend", model.RoleBackend, "running", tt.backendCreated),
			}

			entry := checkCreationOrder(containers)
			assert.Equal(t, tt.wantPass, entry.Passed, entry.Detail)
		})
	}
}

// TestCheckCreationOrder_MissingRole verifies that a stack missing one
// of the two tiers fails the order check rather than passing vacuously.
func TestCheckCreationOrder_MissingRole(t *testing.T) {
	containers := []model.ContainerInfo{
		makeStackContainer("todo-app-backend", model.RoleBackend, "running", 100),
	}

	entry := checkCreationOrder(containers)

	assert.False(t, entry.Passed)
	assert.Contains(t, entry.Detail, "both")
}
