package common

import (
	"errors"
	"fmt"
)

// ErrInvalidValue is returned when a wire byte does not map to a known
// assured mode or server status.
var ErrInvalidValue = errors.New("replication: invalid enumerated value")

// AssuredMode selects how an assured update is acknowledged.
type AssuredMode byte

const (
	// SafeReadMode acknowledges once every replica in the group replayed
	// the update.
	SafeReadMode AssuredMode = 1
	// SafeDataMode acknowledges once the update reached the safe data level
	// of replication servers.
	SafeDataMode AssuredMode = 2
)

// String returns the name of the mode.
func (m AssuredMode) String() string {
	switch m {
	case SafeReadMode:
		return "safe-read"
	case SafeDataMode:
		return "safe-data"
	default:
		return fmt.Sprintf("AssuredMode(%d)", byte(m))
	}
}

// AssuredModeFromByte validates a wire byte.
func AssuredModeFromByte(b byte) (AssuredMode, error) {
	switch m := AssuredMode(b); m {
	case SafeReadMode, SafeDataMode:
		return m, nil
	}
	return 0, fmt.Errorf("%w: assured mode %d", ErrInvalidValue, b)
}

// ServerStatus is the status a directory server reports to its
// replication server.
type ServerStatus byte

const (
	InvalidStatus      ServerStatus = 0
	NormalStatus       ServerStatus = 1
	DegradedStatus     ServerStatus = 2
	FullUpdateStatus   ServerStatus = 3
	BadGenIDStatus     ServerStatus = 4
	NotConnectedStatus ServerStatus = 5
)

// String returns the name of the status.
func (s ServerStatus) String() string {
	switch s {
	case InvalidStatus:
		return "invalid"
	case NormalStatus:
		return "normal"
	case DegradedStatus:
		return "degraded"
	case FullUpdateStatus:
		return "full-update"
	case BadGenIDStatus:
		return "bad-generation-id"
	case NotConnectedStatus:
		return "not-connected"
	default:
		return fmt.Sprintf("ServerStatus(%d)", byte(s))
	}
}

// ServerStatusFromByte validates a wire byte.
func ServerStatusFromByte(b byte) (ServerStatus, error) {
	if b > byte(NotConnectedStatus) {
		return InvalidStatus, fmt.Errorf("%w: server status %d", ErrInvalidValue, b)
	}
	return ServerStatus(b), nil
}
