package logging

import (
	"github.com/google/uuid"
)

// GenerateRequestID returns a random identifier for correlating the log
// lines of one connection, request or replication session.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ShortID returns the first eight characters of id, or id itself when it
// is shorter. Useful when a full UUID would drown a text log line.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
