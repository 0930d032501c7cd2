// Package net implements the transports through which murmur nodes exchange
// timelines.
//
// A Transport exposes three RPCs to its node: PushTimeline, GetTimeline and
// GetLastUpdate. Incoming requests are delivered on the Consumer channel as
// RPC objects, and the node answers them with RPC.Respond. There are two
// implementations:
//
// - Inmem: in-memory transport used only for testing
//
// - HTTP: the timeline endpoints over plain HTTP
//
// HTTP
//
// The HTTP transport serves the following endpoints on BindAddr:
//
//	PUT /timeline/{user}              push a signed snapshot of user's timeline
//	GET /timeline/{user}              fetch the snapshot of user's timeline
//	GET /timeline/last-update/{user}  fetch the last timestamp of user's timeline
//
// A push that the receiving node declines, because it is stale, because it
// targets the receiver's own user, or because its signature does not verify,
// is answered with 403 Forbidden. The client side reports it as ErrRejected.
// Bodies are JSON. GET /timeline/{user} responses carry an ETag computed with
// xxhash over the body.
package net
