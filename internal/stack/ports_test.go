package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jude-san/TMU-app/internal/model"
)

// TestParseServicePorts verifies parsing of the supported port
// specification forms into domain mappings.
func TestParseServicePorts(t *testing.T) {
	t.Run("host colon container", func(t *testing.T) {
		svc := &ServiceConfig{Name: "frontend", Ports: []string{"80:80"}}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		require.Len(t, mappings, 1)

		assert.Equal(t, model.PortMapping{
			ServiceName:   "frontend",
			ContainerPort: 80,
			HostPort:      80,
			Protocol:      "tcp",
		}, mappings[0])
	})

	t.Run("different host and container ports", func(t *testing.T) {
		svc := &ServiceConfig{Name: "frontend", Ports: []string{"8080:80"}}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, 8080, mappings[0].HostPort)
		assert.Equal(t, 80, mappings[0].ContainerPort)
	})

	t.Run("explicit protocol", func(t *testing.T) {
		svc := &ServiceConfig{Name: "backend", Ports: []string{"3000:3000/udp"}}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, "udp", mappings[0].Protocol)
	})

	t.Run("host ip prefix accepted", func(t *testing.T) {
		svc := &ServiceConfig{Name: "backend", Ports: []string{"127.0.0.1:3000:3000"}}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		assert.Equal(t, 3000, mappings[0].HostPort)
		assert.Equal(t, 3000, mappings[0].ContainerPort)
	})

	t.Run("port range expands", func(t *testing.T) {
		svc := &ServiceConfig{Name: "backend", Ports: []string{"8080-8081:80-81"}}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		require.Len(t, mappings, 2, "a two-port range expands to two mappings")
	})

	t.Run("bare container port rejected", func(t *testing.T) {
		// A bare port would let the engine pick an ephemeral host port,
		// breaking the fixed localhost URL contract.
		svc := &ServiceConfig{Name: "backend", Ports: []string{"3000"}}

		_, err := ParseServicePorts(svc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no host port")
	})

	t.Run("garbage rejected", func(t *testing.T) {
		svc := &ServiceConfig{Name: "backend", Ports: []string{"abc:def"}}

		_, err := ParseServicePorts(svc)
		assert.Error(t, err)
	})

	t.Run("no ports yields no mappings", func(t *testing.T) {
		svc := &ServiceConfig{Name: "backend"}

		mappings, err := ParseServicePorts(svc)
		require.NoError(t, err)
		assert.Empty(t, mappings)
	})
}

// TestParseStackPorts verifies aggregation across services in
// declaration order, and that a parse failure in any service surfaces.
func TestParseStackPorts(t *testing.T) {
	t.Run("all services aggregated", func(t *testing.T) {
		cfg := &Config{
			Services: []ServiceConfig{
				{Name: "frontend", Ports: []string{"80:80"}},
				{Name: "backend", Ports: []string{"3000:3000"}},
			},
		}

		mappings, err := ParseStackPorts(cfg)
		require.NoError(t, err)
		require.Len(t, mappings, 2)
		assert.Equal(t, "frontend", mappings[0].ServiceName)
		assert.Equal(t, "backend", mappings[1].ServiceName)
	})

	t.Run("error names the offending service", func(t *testing.T) {
		cfg := &Config{
			Services: []ServiceConfig{
				{Name: "frontend", Ports: []string{"80:80"}},
				{Name: "backend", Ports: []string{"bogus"}},
			},
		}

		_, err := ParseStackPorts(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend")
	})
}
