package net

import "github.com/mosaicnetworks/murmur/src/timeline"

// PushRequest carries a signed snapshot of User's timeline, in the encoded
// form it was received in, so that the receiver verifies exactly the signed
// bytes.
type PushRequest struct {
	User    string
	Payload []byte
}

// PushResponse tells whether the receiver replaced its copy of the timeline.
// Reason explains a refusal.
type PushResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// TimelineRequest asks for the snapshot of User's timeline.
type TimelineRequest struct {
	User string
}

// TimelineResponse contains the requested snapshot.
type TimelineResponse struct {
	Snapshot *timeline.Snapshot
}

// LastUpdateRequest asks for the last timestamp of User's timeline.
type LastUpdateRequest struct {
	User string
}

// LastUpdateResponse contains the last timestamp of the requested timeline, 0
// when it is empty.
type LastUpdateResponse struct {
	LastUpdated int64 `json:"lastUpdated"`
}
