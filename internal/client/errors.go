package client

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
)

// Client errors
var (
	// ErrTimeout is returned by GetWithTimeout when no result arrived in
	// time.
	ErrTimeout = errors.New("client: timed out waiting for result")
	// ErrCancelled matches the result of a request cancelled with Cancel.
	ErrCancelled = errors.New("client: request cancelled")
	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = errors.New("client: connection closed")
	// ErrMessageIDExhausted is returned once every message ID was used.
	ErrMessageIDExhausted = errors.New("client: message IDs exhausted")
)

// ErrorResultError is returned by Get for a result whose code is an error.
type ErrorResultError struct {
	Result ldap.Result
}

func (e *ErrorResultError) Error() string {
	if e.Result.DiagnosticMessage == "" {
		return fmt.Sprintf("client: %s", e.Result.Code)
	}
	return fmt.Sprintf("client: %s: %s", e.Result.Code, e.Result.DiagnosticMessage)
}

// Is matches ErrCancelled and ErrTimeout against the client-side codes
// they are reported with.
func (e *ErrorResultError) Is(target error) bool {
	switch target {
	case ErrCancelled:
		return e.Result.Code == ldap.ResultClientSideUserCancelled
	case ErrTimeout:
		return e.Result.Code == ldap.ResultClientSideTimeout
	case ErrConnectionClosed:
		return e.Result.Code == ldap.ResultClientSideServerDown
	}
	return false
}
