package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// MaxPort is the highest TCP port number.
const MaxPort = 65535

// ErrNoAvailablePort is returned when every port from the start to MaxPort is taken.
var ErrNoAvailablePort = errors.New("no available port")

// Owner describes the process listening on a port.
type Owner struct {
	PID  int32
	Name string
}

func (o Owner) String() string {
	if o.Name == "" {
		return fmt.Sprintf("PID %d", o.PID)
	}
	return fmt.Sprintf("%s (PID %d)", o.Name, o.PID)
}

// IsPortAvailable checks if a port is available for binding.
// The listener is closed before returning, so the port is not reserved:
// another process may take it before the caller binds it.
func IsPortAvailable(port int) bool {
	if port < 1 || port > MaxPort {
		return false
	}
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailablePort returns the lowest port >= startPort that can be bound.
func FindAvailablePort(startPort int) (int, error) {
	if startPort < 1 {
		startPort = 1
	}
	for port := startPort; port <= MaxPort; port++ {
		if IsPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w at or above %d", ErrNoAvailablePort, startPort)
}

// ProcessOnPort returns the process listening on the given TCP port.
// ok is false when no listener is found or the lookup is not permitted.
func ProcessOnPort(port int) (owner Owner, ok bool) {
	conns, err := gnet.Connections("tcp")
	if err != nil {
		return Owner{}, false
	}

	for _, c := range conns {
		if c.Status != "LISTEN" || int(c.Laddr.Port) != port || c.Pid == 0 {
			continue
		}
		owner = Owner{PID: c.Pid}
		if p, err := process.NewProcess(c.Pid); err == nil {
			if name, err := p.Name(); err == nil {
				owner.Name = name
			}
		}
		return owner, true
	}
	return Owner{}, false
}

// GetPortStatus describes a port, naming the holder when it is taken.
func GetPortStatus(port int) string {
	if IsPortAvailable(port) {
		return fmt.Sprintf("port %d is available", port)
	}
	if owner, ok := ProcessOnPort(port); ok {
		return fmt.Sprintf("port %d is in use by %s", port, owner)
	}
	return fmt.Sprintf("port %d is in use", port)
}
