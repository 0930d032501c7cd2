package timeline

// Message is one entry of a timeline. Timestamp is in seconds.
type Message struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Timeline is a sequence of Messages in ascending Timestamp order.
type Timeline []Message

// LastTimestamp returns the Timestamp of the trailing Message, or 0 for an
// empty Timeline.
func (t Timeline) LastTimestamp() int64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Timestamp
}

// Copy returns a Timeline that shares no memory with t.
func (t Timeline) Copy() Timeline {
	if t == nil {
		return nil
	}
	res := make(Timeline, len(t))
	copy(res, t)
	return res
}

// IsSorted reports whether the Timestamps never decrease.
func (t Timeline) IsSorted() bool {
	for i := 1; i < len(t); i++ {
		if t[i].Timestamp < t[i-1].Timestamp {
			return false
		}
	}
	return true
}
