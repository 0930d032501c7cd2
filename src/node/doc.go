// Package node implements the reactive component of a murmur node.
//
// A node owns the timeline of one user, keeps copies of the timelines that
// user follows, and serves all of them to other nodes. Node implements a state
// machine where the states are defined in the state package.
//
// Discovery
//
// Nodes find each other through a directory (see the directory package). Every
// node announces itself as a server of its own user, and of every user it
// follows. Asking the directory for a user therefore returns the author's node
// as well as every follower holding a copy. Directory answers arrive
// asynchronously and are attributed to the right request by a Correlator.
//
// Propagation and anti-entropy
//
// Timelines travel as signed snapshots: the whole timeline, its owner, the
// owner's public key and a signature over all of it. When a user posts a
// message, the node signs the new timeline and pushes it to every peer serving
// that user. Receivers verify the snapshot against the key they pinned when
// they started following, and keep it only if it is strictly newer than their
// copy.
//
// Pushes can be missed, so every SyncInterval the node also pulls the timelines
// it follows. For each followed user it asks every server for its last update
// time, and fetches the whole timeline from the one with the newest copy.
//
// The communication mechanism is a small RPC protocol over the transports
// defined in the net package: PushTimeline, GetTimeline and GetLastUpdate.
package node
