// Package timeline holds the data a murmur node synchronizes: append-only
// timelines of messages, the signed snapshots that carry them between nodes,
// and the stores that keep the local timeline and the copies of followed
// timelines.
//
// A Store owns exactly one local timeline, belonging to the node's own user,
// and any number of followed snapshots keyed by owner. A followed snapshot is
// only ever replaced as a whole, and only by a snapshot whose last message is
// strictly newer than the one it replaces. Readers always receive copies, so
// a concurrent replacement is never observed half-way.
//
// Two implementations are provided. InmemStore keeps everything in memory.
// BadgerStore writes through to a Badger database and reloads its state when
// the node restarts.
package timeline
