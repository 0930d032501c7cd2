package directory

import "github.com/gammazero/nexus/v3/wamp"

const (
	// AnnounceProcedure registers an address for a key. Arguments: key, addr.
	AnnounceProcedure = "murmur.directory.announce"

	// LookupProcedure returns the addresses registered for a key. Arguments:
	// key. Results: one host:port string per address.
	LookupProcedure = "murmur.directory.lookup"

	// ErrInvalidArgument is the error URI returned for malformed invocations.
	ErrInvalidArgument wamp.URI = "murmur.error.invalid_argument"
)
