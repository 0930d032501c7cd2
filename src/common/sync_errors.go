package common

import (
	"errors"
	"fmt"
)

// SyncErrType classifies the failures of the discovery, follow, pull and
// ingress paths.
type SyncErrType uint32

const (
	// DiscoveryFailure means the directory lookup errored or found nobody.
	DiscoveryFailure SyncErrType = iota
	// CommunicationFailure means a peer was unreachable or did not respond.
	CommunicationFailure
	// AuthenticityFailure means a snapshot signature did not verify.
	AuthenticityFailure
)

// String ...
func (t SyncErrType) String() string {
	switch t {
	case DiscoveryFailure:
		return "Discovery Failure"
	case CommunicationFailure:
		return "Communication Failure"
	case AuthenticityFailure:
		return "Authenticity Failure"
	default:
		return "Unknown"
	}
}

// SyncErr is returned by the operations that synchronize timelines with
// remote peers. Stale and self updates are not errors and never produce a
// SyncErr.
type SyncErr struct {
	errType SyncErrType
	user    string
	cause   error
}

// NewSyncErr ...
func NewSyncErr(errType SyncErrType, user string, cause error) *SyncErr {
	return &SyncErr{
		errType: errType,
		user:    user,
		cause:   cause,
	}
}

// Error ...
func (e *SyncErr) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s, %s", e.user, e.errType)
	}
	return fmt.Sprintf("%s, %s: %v", e.user, e.errType, e.cause)
}

// Unwrap returns the underlying cause.
func (e *SyncErr) Unwrap() error {
	return e.cause
}

// Type ...
func (e *SyncErr) Type() SyncErrType {
	return e.errType
}

// User returns the user name the failed operation was about.
func (e *SyncErr) User() string {
	return e.user
}

// IsSync checks that err, or an error it wraps, is a SyncErr of type t.
func IsSync(err error, t SyncErrType) bool {
	var syncErr *SyncErr
	return errors.As(err, &syncErr) && syncErr.errType == t
}
