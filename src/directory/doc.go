// Package directory finds the nodes that serve a user's timeline.
//
// A Directory maps a user name to a LookupKey and answers lookups
// asynchronously: every address it finds is reported through a found-peer
// notification that carries only the address and the key, and the lookup
// itself completes with an error and a count. The Correlator turns those
// notifications back into per-request results, so that the rest of the node
// can simply ask for the peers of a user and wait.
//
// Two directories are provided. InmemDirectory shares a Registry between all
// the nodes of one process and is used in tests. WAMPDirectory talks to a
// directory Server over WebSockets, using the WAMP RPC protocol implemented by
// gammazero/nexus. The Server hosts a WAMP router and registers the announce
// and lookup procedures on it.
package directory
