// Package murmur assembles the components of a murmur node from a Config: the
// user's key, the timeline store, the HTTP transport, the directory client,
// the node itself and the local API service.
package murmur
