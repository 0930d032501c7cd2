package timeline

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/murmur/src/common"
	"github.com/sirupsen/logrus"
)

const (
	selfKey        = "self"
	localKey       = "local"
	followedPrefix = "followed_"
)

// BadgerStore implements the Store interface with a Badger database behind an
// InmemStore cache. Every write goes to the database first and to the cache
// after the database transaction has committed, so readers never see a state
// that is not also persisted.
type BadgerStore struct {
	l          sync.Mutex // serializes writers
	inmemStore *InmemStore
	db         *badger.DB
	path       string
}

type selfRecord struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// NewBadgerStore opens the database in path, creating it if needed, and loads
// its content. A database created for another user is refused.
func NewBadgerStore(self string, selfPubKey string, path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("ns", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(self, selfPubKey),
		db:         handle,
		path:       path,
	}

	if err := store.load(); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

// load reads the self record, the local timeline and the followed snapshots
// into the cache. A fresh database gets its self record written.
func (s *BadgerStore) load() error {
	var rec *selfRecord
	var local Timeline
	followed := make(map[string]*Snapshot)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(selfKey))
		if err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec = &selfRecord{}
			if err := decode(raw, rec); err != nil {
				return err
			}
		} else if !isDBKeyNotFound(err) {
			return err
		}

		item, err = txn.Get([]byte(localKey))
		if err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := decode(raw, &local); err != nil {
				return err
			}
		} else if !isDBKeyNotFound(err) {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(followedPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			snap := &Snapshot{}
			if err := snap.Unmarshal(raw); err != nil {
				return err
			}
			followed[snap.Owner] = snap
		}

		return nil
	})
	if err != nil {
		return err
	}

	if rec == nil {
		rec = &selfRecord{Name: s.inmemStore.self, Key: s.inmemStore.selfKey}
		if err := s.dbSet([]byte(selfKey), rec); err != nil {
			return err
		}
	} else if rec.Name != s.inmemStore.self {
		return fmt.Errorf("database %s belongs to %s, not %s", s.path, rec.Name, s.inmemStore.self)
	}

	if local != nil {
		s.inmemStore.local = local
	}
	s.inmemStore.followed = followed

	return nil
}

func followedKey(owner string) []byte {
	return []byte(followedPrefix + owner)
}

func (s *BadgerStore) dbSet(key []byte, v interface{}) error {
	val, err := encode(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

// Self implements the Store interface.
func (s *BadgerStore) Self() string {
	return s.inmemStore.Self()
}

// Append implements the Store interface.
func (s *BadgerStore) Append(msg Message) (Message, error) {
	s.l.Lock()
	defer s.l.Unlock()

	s.inmemStore.RLock()
	next := appendMessage(s.inmemStore.local.Copy(), &msg)
	closed := s.inmemStore.closed
	s.inmemStore.RUnlock()

	if closed {
		return Message{}, cm.NewStoreErr("Timeline", cm.Closed, s.inmemStore.self)
	}

	if err := s.dbSet([]byte(localKey), next); err != nil {
		return Message{}, err
	}

	s.inmemStore.Lock()
	s.inmemStore.local = next
	s.inmemStore.Unlock()

	return msg, nil
}

// Timeline implements the Store interface.
func (s *BadgerStore) Timeline(user string) (Timeline, error) {
	return s.inmemStore.Timeline(user)
}

// Snapshot implements the Store interface.
func (s *BadgerStore) Snapshot(user string) (*Snapshot, error) {
	return s.inmemStore.Snapshot(user)
}

// Timelines implements the Store interface.
func (s *BadgerStore) Timelines() (Timeline, map[string]Timeline, error) {
	return s.inmemStore.Timelines()
}

// Followed implements the Store interface.
func (s *BadgerStore) Followed() []string {
	return s.inmemStore.Followed()
}

// Follow implements the Store interface.
func (s *BadgerStore) Follow(snapshot *Snapshot) error {
	s.l.Lock()
	defer s.l.Unlock()

	s.inmemStore.RLock()
	err := s.inmemStore.checkFollow(snapshot)
	s.inmemStore.RUnlock()
	if err != nil {
		return err
	}

	if err := s.dbSet(followedKey(snapshot.Owner), snapshot); err != nil {
		return err
	}

	return s.inmemStore.Follow(snapshot)
}

// ReplaceIfNewer implements the Store interface.
func (s *BadgerStore) ReplaceIfNewer(snapshot *Snapshot) (bool, error) {
	s.l.Lock()
	defer s.l.Unlock()

	s.inmemStore.RLock()
	ok, err := s.inmemStore.shouldReplace(snapshot)
	var pinned string
	if ok {
		pinned = s.inmemStore.followed[snapshot.Owner].Key
	}
	s.inmemStore.RUnlock()

	if !ok || err != nil {
		return false, err
	}

	persisted := snapshot.Copy()
	persisted.Key = pinned
	if err := s.dbSet(followedKey(snapshot.Owner), persisted); err != nil {
		return false, err
	}

	return s.inmemStore.ReplaceIfNewer(snapshot)
}

// LastUpdated implements the Store interface.
func (s *BadgerStore) LastUpdated(user string) int64 {
	return s.inmemStore.LastUpdated(user)
}

// Key implements the Store interface.
func (s *BadgerStore) Key(user string) (string, error) {
	return s.inmemStore.Key(user)
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	s.l.Lock()
	defer s.l.Unlock()

	if err := s.inmemStore.Close(); err != nil {
		return err
	}

	return s.db.Close()
}
