package net

import "errors"

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrRejected is returned when the remote node declined a push.
	ErrRejected = errors.New("rejected")

	// ErrBadRequest is returned when the remote node could not decode a
	// request. Nodes wrap it in their responses to malformed requests.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound is returned when the remote node does not serve the
	// requested timeline. Nodes wrap it in their responses to such requests.
	ErrNotFound = errors.New("not found")
)
