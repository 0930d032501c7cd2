package node

import "github.com/mosaicnetworks/murmur/src/timeline"

// GetMergedTimeline returns the local timeline and every followed timeline
// merged in timestamp order, each message tagged with its author.
func (n *Node) GetMergedTimeline() ([]timeline.MergedEntry, error) {
	local, followed, err := n.store.Timelines()
	if err != nil {
		return nil, err
	}

	return timeline.Merge(n.self, local, followed), nil
}

// GetFollowed returns the users followed by the node.
func (n *Node) GetFollowed() []string {
	return n.store.Followed()
}
