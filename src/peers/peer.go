package peers

import (
	"fmt"
	"net"
	"strconv"
)

// PeerAddress is where a node's timeline endpoints can be reached.
type PeerAddress struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// NewPeerAddress ...
func NewPeerAddress(host string, port int) PeerAddress {
	return PeerAddress{Host: host, Port: port}
}

// ParseAddress parses a host:port string.
func ParseAddress(addr string) (PeerAddress, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return PeerAddress{}, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return PeerAddress{}, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	if port <= 0 || port > 65535 {
		return PeerAddress{}, fmt.Errorf("port out of range in %q", addr)
	}
	if host == "" {
		return PeerAddress{}, fmt.Errorf("missing host in %q", addr)
	}

	return PeerAddress{Host: host, Port: port}, nil
}

// String renders the address as host:port.
func (p PeerAddress) String() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ExcludePeer is used to exclude a single address from a list of addresses.
// It returns the index of the excluded address, -1 if it was not there.
func ExcludePeer(peers []PeerAddress, peer string) (int, []PeerAddress) {
	index := -1
	otherPeers := make([]PeerAddress, 0, len(peers))
	for i, p := range peers {
		if p.String() != peer {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
