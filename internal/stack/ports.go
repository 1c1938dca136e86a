// ports.go parses the "host:container" port specifications from
// deploy.json into domain port mappings.
package stack

import (
	"fmt"

	"github.com/docker/go-connections/nat"

	"github.com/jude-san/TMU-app/internal/model"
)

// ParseServicePorts parses a service's port specifications into port
// mappings.
//
// The specification syntax is the Docker one, handled by the nat
// package: "80:80", "8080:80/tcp", "127.0.0.1:3000:3000", and ranges
// like "8080-8081:80-81". Every resulting mapping must carry an
// explicit host port: a bare container port ("3000") would let the
// engine pick an ephemeral host port, which breaks the fixed
// `http://localhost:<port>` contract the stack is built around.
func ParseServicePorts(svc *ServiceConfig) ([]model.PortMapping, error) {
	var mappings []model.PortMapping

	for _, spec := range svc.Ports {
		parsed, err := nat.ParsePortSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("service %q: invalid port specification %q: %w", svc.Name, spec, err)
		}

		for _, pm := range parsed {
			if pm.Binding.HostPort == "" {
				return nil, fmt.Errorf("service %q: port specification %q has no host port (use \"host:container\")", svc.Name, spec)
			}

			hostPort, err := nat.ParsePort(pm.Binding.HostPort)
			if err != nil {
				return nil, fmt.Errorf("service %q: invalid host port in %q: %w", svc.Name, spec, err)
			}

			mappings = append(mappings, model.PortMapping{
				ServiceName:   svc.Name,
				ContainerPort: pm.Port.Int(),
				HostPort:      hostPort,
				Protocol:      pm.Port.Proto(),
			})
		}
	}

	return mappings, nil
}

// ParseStackPorts parses the port specifications of every service in
// the config, in declaration order.
func ParseStackPorts(cfg *Config) ([]model.PortMapping, error) {
	var all []model.PortMapping

	for i := range cfg.Services {
		mappings, err := ParseServicePorts(&cfg.Services[i])
		if err != nil {
			return nil, err
		}
		all = append(all, mappings...)
	}

	return all, nil
}
