package timeline

// Store is an interface for backend stores.
type Store interface {
	// Self returns the name of the user owning the local timeline.
	Self() string
	// Append adds a message to the local timeline and returns it as stored.
	// A timestamp that does not advance the timeline is moved to one second
	// after the last message.
	Append(msg Message) (Message, error)
	// Timeline returns a copy of the local timeline for Self(), or of the
	// followed timeline for any other user.
	Timeline(user string) (Timeline, error)
	// Snapshot returns a copy of the stored snapshot of a followed user.
	Snapshot(user string) (*Snapshot, error)
	// Timelines returns the local timeline and every followed timeline, read
	// together.
	Timelines() (Timeline, map[string]Timeline, error)
	// Followed returns the sorted names of the followed users.
	Followed() []string
	// Follow imports a snapshot as the followed copy of its owner and pins the
	// owner's key.
	Follow(snapshot *Snapshot) error
	// ReplaceIfNewer atomically swaps the followed copy of the snapshot's
	// owner, provided its last timestamp is strictly greater than the one
	// currently stored. It returns whether the swap happened.
	ReplaceIfNewer(snapshot *Snapshot) (bool, error)
	// LastUpdated returns the last timestamp known for a user, 0 if none.
	LastUpdated(user string) int64
	// Key returns the public key pinned for a user.
	Key(user string) (string, error)
	// Close releases the underlying resources.
	Close() error
}
