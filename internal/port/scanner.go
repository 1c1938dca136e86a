// scanner.go probes host ports through the OS network stack.
package port

import (
	"fmt"
	"net"

	"github.com/jude-san/TMU-app/internal/model"
)

// suggestionRange is how far above a busy port SuggestAlternative
// searches for a free one.
const suggestionRange = 1000

// Scanner checks whether specific ports are available on the host.
//
// The struct is stateless, but is defined as a struct rather than bare
// functions so future options (bind address, probe timeout) can be
// added without breaking the API, and so it can be injected as a
// dependency in tests.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether a single host port is free.
//
// For TCP it attempts net.Listen, for UDP net.ListenPacket; if the bind
// succeeds the port is free and the listener is closed immediately. An
// empty protocol is treated as TCP, matching how port specs default.
//
// The probe binds all interfaces (":port" rather than "127.0.0.1:port")
// because Docker publishes ports on 0.0.0.0, so the same address space
// must be checked to avoid false positives.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "", "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		// UDP is connectionless, so ListenPacket is the bind probe.
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		// Unknown protocol, treat as unavailable to fail safe.
		return false
	}
}

// CheckMappings probes the host side of every mapping and returns the
// ones whose host port is already in use. An empty result means the
// stack can bind everything it declares.
//
// Note that binding port 80 may also fail for permission reasons rather
// than occupancy; the probe cannot tell the two apart, and either way
// the deployment would not get the port.
func (s *Scanner) CheckMappings(mappings []model.PortMapping) []model.PortMapping {
	var conflicts []model.PortMapping
	for _, m := range mappings {
		if !s.IsPortAvailable(m.HostPort, m.Protocol) {
			conflicts = append(conflicts, m)
		}
	}
	return conflicts
}

// FindAvailablePort scans [startPort, endPort] inclusive and returns
// the first free port for the protocol.
//
// The search is sequential from startPort upward, so the same free port
// is selected consistently for the same host state.
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if port > 65535 {
			break
		}
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}

// SuggestAlternative returns a free port near a busy one, for conflict
// error messages ("port 80 is in use; 81 is free"). The caller still
// decides whether to change the config; nothing is rebound
// automatically.
func (s *Scanner) SuggestAlternative(busyPort int, protocol string) (int, error) {
	return s.FindAvailablePort(busyPort+1, busyPort+suggestionRange, protocol)
}
