// Package peers defines the network address of a murmur node and the ordered,
// duplicate-free lists of addresses that discovery produces.
//
// A peer, in murmur, is any node that serves a copy of a user's timeline. The
// directory reports peers for a user name as host:port addresses, in the order
// it found them. That order matters: the follow engine tries candidates in
// discovery order, and the anti-entropy engine keeps the first candidate when
// two report the same last-update.
package peers
