package timeline

import (
	"fmt"
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/murmur/src/common"
)

// InmemStore implements the Store interface in memory. Followed snapshots are
// never mutated in place: a replacement swaps the pointer, and readers get
// copies.
type InmemStore struct {
	sync.RWMutex
	self     string
	selfKey  string
	local    Timeline
	followed map[string]*Snapshot //[owner] => Snapshot
	closed   bool
}

// NewInmemStore creates an empty InmemStore for the user self whose public
// key is selfKey.
func NewInmemStore(self string, selfKey string) *InmemStore {
	return &InmemStore{
		self:     self,
		selfKey:  selfKey,
		local:    Timeline{},
		followed: make(map[string]*Snapshot),
	}
}

// Self implements the Store interface.
func (s *InmemStore) Self() string {
	return s.self
}

// Append implements the Store interface.
func (s *InmemStore) Append(msg Message) (Message, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return Message{}, cm.NewStoreErr("Timeline", cm.Closed, s.self)
	}

	s.local = appendMessage(s.local, &msg)

	return msg, nil
}

// appendMessage moves msg after the last message when it would not advance
// the timeline, then appends it.
func appendMessage(t Timeline, msg *Message) Timeline {
	if last := t.LastTimestamp(); len(t) > 0 && msg.Timestamp <= last {
		msg.Timestamp = last + 1
	}
	return append(t, *msg)
}

// Timeline implements the Store interface.
func (s *InmemStore) Timeline(user string) (Timeline, error) {
	s.RLock()
	defer s.RUnlock()

	if user == s.self {
		return s.local.Copy(), nil
	}

	snap, ok := s.followed[user]
	if !ok {
		return nil, cm.NewStoreErr("Timeline", cm.KeyNotFound, user)
	}

	return snap.Content.Copy(), nil
}

// Snapshot implements the Store interface.
func (s *InmemStore) Snapshot(user string) (*Snapshot, error) {
	s.RLock()
	defer s.RUnlock()

	snap, ok := s.followed[user]
	if !ok {
		return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, user)
	}

	return snap.Copy(), nil
}

// Timelines implements the Store interface.
func (s *InmemStore) Timelines() (Timeline, map[string]Timeline, error) {
	s.RLock()
	defer s.RUnlock()

	followed := make(map[string]Timeline, len(s.followed))
	for owner, snap := range s.followed {
		followed[owner] = snap.Content.Copy()
	}

	return s.local.Copy(), followed, nil
}

// Followed implements the Store interface.
func (s *InmemStore) Followed() []string {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, 0, len(s.followed))
	for owner := range s.followed {
		res = append(res, owner)
	}
	sort.Strings(res)

	return res
}

// Follow implements the Store interface.
func (s *InmemStore) Follow(snapshot *Snapshot) error {
	s.Lock()
	defer s.Unlock()

	if err := s.checkFollow(snapshot); err != nil {
		return err
	}

	s.followed[snapshot.Owner] = snapshot.Copy()

	return nil
}

func (s *InmemStore) checkFollow(snapshot *Snapshot) error {
	if s.closed {
		return cm.NewStoreErr("Snapshot", cm.Closed, snapshot.Owner)
	}
	if snapshot.Owner == "" {
		return fmt.Errorf("snapshot has no owner")
	}
	if snapshot.Owner == s.self {
		return fmt.Errorf("cannot follow self (%s)", s.self)
	}
	return nil
}

// ReplaceIfNewer implements the Store interface.
func (s *InmemStore) ReplaceIfNewer(snapshot *Snapshot) (bool, error) {
	s.Lock()
	defer s.Unlock()

	ok, err := s.shouldReplace(snapshot)
	if !ok || err != nil {
		return false, err
	}

	s.swap(snapshot)

	return true, nil
}

// shouldReplace must be called with the lock held.
func (s *InmemStore) shouldReplace(snapshot *Snapshot) (bool, error) {
	if s.closed {
		return false, cm.NewStoreErr("Snapshot", cm.Closed, snapshot.Owner)
	}
	if snapshot.Owner == s.self {
		return false, nil
	}

	cur, ok := s.followed[snapshot.Owner]
	if !ok {
		return false, cm.NewStoreErr("Snapshot", cm.UnknownUser, snapshot.Owner)
	}

	return snapshot.LastTimestamp() > cur.LastTimestamp(), nil
}

// swap must be called with the lock held. The pinned key is kept.
func (s *InmemStore) swap(snapshot *Snapshot) {
	next := snapshot.Copy()
	next.Key = s.followed[snapshot.Owner].Key
	s.followed[snapshot.Owner] = next
}

// LastUpdated implements the Store interface.
func (s *InmemStore) LastUpdated(user string) int64 {
	s.RLock()
	defer s.RUnlock()

	if user == s.self {
		return s.local.LastTimestamp()
	}

	if snap, ok := s.followed[user]; ok {
		return snap.LastTimestamp()
	}

	return 0
}

// Key implements the Store interface.
func (s *InmemStore) Key(user string) (string, error) {
	s.RLock()
	defer s.RUnlock()

	if user == s.self {
		return s.selfKey, nil
	}

	snap, ok := s.followed[user]
	if !ok || snap.Key == "" {
		return "", cm.NewStoreErr("Key", cm.KeyNotFound, user)
	}

	return snap.Key, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()

	s.closed = true

	return nil
}
