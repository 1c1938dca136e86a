package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jude-san/TMU-app/internal/model"
)

// TestShortID verifies container ID shortening matches `docker ps`.
func TestShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortID("0123456789abcdef0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"), "short IDs pass through unchanged")
}

// TestFormatPorts verifies the host:container/proto rendering used in
// tables.
func TestFormatPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports []model.PortMapping
		want  string
	}{
		{
			name: "single mapping",
			ports: []model.PortMapping{
				{HostPort: 80, ContainerPort: 80, Protocol: "tcp"},
			},
			want: "80:80/tcp",
		},
		{
			name: "multiple mappings",
			ports: []model.PortMapping{
				{HostPort: 80, ContainerPort: 80, Protocol: "tcp"},
				{HostPort: 3000, ContainerPort: 3000, Protocol: "tcp"},
			},
			want: "80:80/tcp, 3000:3000/tcp",
		},
		{
			name: "protocol defaults to tcp",
			ports: []model.PortMapping{
				{HostPort: 8080, ContainerPort: 80},
			},
			want: "8080:80/tcp",
		},
		{
			name: "no ports",
			want: "-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPorts(tt.ports))
		})
	}
}

// TestFormatTimestamp_Zero verifies the placeholder for unknown times.
func TestFormatTimestamp_Zero(t *testing.T) {
	assert.Equal(t, "-", formatTimestamp(0))
}

// TestSanitizeForOutput verifies that management labels are stripped
// from serialized containers while other labels survive.
func TestSanitizeForOutput(t *testing.T) {
	// Arrange
	info := &model.StackInfo{
		Name: "todo-app",
		Containers: []model.ContainerInfo{
			{
				ContainerName: "todo-app-backend",
				Labels: map[string]string{
					"tmu.managed-by":             "tmuctl",
					"tmu.stack":                  "todo-app",
					"com.docker.compose.service": "backend",
				},
			},
		},
	}

	// Act
	sanitizeForOutput(info)

	// Assert
	labels := info.Containers[0].Labels
	assert.NotContains(t, labels, "tmu.managed-by")
	assert.NotContains(t, labels, "tmu.stack")
	assert.Equal(t, "backend", labels["com.docker.compose.service"])
}

// TestSortedKeys verifies deterministic key ordering.
func TestSortedKeys(t *testing.T) {
	m := map[string]string{"frontend": "a", "backend": "b"}
	assert.Equal(t, []string{"backend", "frontend"}, sortedKeys(m))
}
