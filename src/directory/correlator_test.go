package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/murmur/src/common"
	"github.com/mosaicnetworks/murmur/src/peers"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDirectory records lookups and lets the test decide when and how
// they complete.
type scriptedDirectory struct {
	sync.Mutex
	handler PeerFoundHandler
	calls   []string
	ids     []string
	dones   []LookupDone
	started chan string
}

func newScriptedDirectory() *scriptedDirectory {
	return &scriptedDirectory{
		started: make(chan string, 16),
	}
}

func (d *scriptedDirectory) Hash(name string) LookupKey { return Hash(name) }

func (d *scriptedDirectory) Lookup(ctx context.Context, name string, id string, done LookupDone) {
	d.Lock()
	d.calls = append(d.calls, name)
	d.ids = append(d.ids, id)
	d.dones = append(d.dones, done)
	d.Unlock()
	d.started <- name
}

func (d *scriptedDirectory) Announce(ctx context.Context, name string) error { return nil }

func (d *scriptedDirectory) OnPeerFound(handler PeerFoundHandler) { d.handler = handler }

func (d *scriptedDirectory) Close() error { return nil }

// notify delivers addrs as results of the most recent lookup for name.
func (d *scriptedDirectory) notify(name string, addrs ...string) {
	d.Lock()
	id := ""
	for i := len(d.calls) - 1; i >= 0; i-- {
		if d.calls[i] == name {
			id = d.ids[i]
			break
		}
	}
	d.Unlock()
	d.notifyFor(name, id, addrs...)
}

// notifyFor delivers addrs as results of the lookup identified by id.
func (d *scriptedDirectory) notifyFor(name string, id string, addrs ...string) {
	for _, a := range addrs {
		addr, _ := peers.ParseAddress(a)
		d.handler(addr, Hash(name), id)
	}
}

func (d *scriptedDirectory) lookupID(i int) string {
	d.Lock()
	defer d.Unlock()
	return d.ids[i]
}

func (d *scriptedDirectory) complete(i int, err error, count int) {
	d.Lock()
	done := d.dones[i]
	d.Unlock()
	done(err, count)
}

func (d *scriptedDirectory) callCount() int {
	d.Lock()
	defer d.Unlock()
	return len(d.calls)
}

func newTestCorrelator(t *testing.T, timeout time.Duration) (*Correlator, *scriptedDirectory) {
	dir := newScriptedDirectory()
	return NewCorrelator(dir, timeout, common.NewTestEntry(t, logrus.DebugLevel)), dir
}

func TestHash(t *testing.T) {
	k := Hash("alice")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Hash("alice"))
	assert.NotEqual(t, k, Hash("bob"))
	assert.Regexp(t, "^[0-9A-F]+$", string(k))
}

func TestCorrelatorDiscover(t *testing.T) {
	c, dir := newTestCorrelator(t, time.Second)

	type result struct {
		peers []peers.PeerAddress
		err   error
	}
	resCh := make(chan result, 1)

	go func() {
		p, err := c.Discover(context.Background(), "bob")
		resCh <- result{p, err}
	}()

	<-dir.started
	dir.notify("bob", "10.0.0.2:80", "10.0.0.1:80", "10.0.0.2:80")
	dir.complete(0, nil, 3)

	res := <-resCh
	require.NoError(t, res.err)
	require.Len(t, res.peers, 2)
	assert.Equal(t, "10.0.0.2:80", res.peers[0].String())
	assert.Equal(t, "10.0.0.1:80", res.peers[1].String())
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorUnknownKey(t *testing.T) {
	c, dir := newTestCorrelator(t, time.Second)

	lookup, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started

	// nobody is looking for carol
	dir.notify("carol", "10.0.0.3:80")

	assert.Equal(t, 1, c.Pending())
	assert.Empty(t, lookup.Peers())

	dir.complete(0, nil, 0)
	p, err := lookup.Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, p)

	// no lookup at all
	dir.notify("dave", "10.0.0.4:80")
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorSerializesSameKey(t *testing.T) {
	c, dir := newTestCorrelator(t, 5*time.Second)

	first, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started

	secondCh := make(chan *Lookup, 1)
	go func() {
		l, err := c.Lookup(context.Background(), "bob")
		if err != nil {
			t.Error(err)
		}
		secondCh <- l
	}()

	// a lookup for another key is not held up
	other, err := c.Lookup(context.Background(), "carol")
	require.NoError(t, err)
	<-dir.started

	select {
	case <-secondCh:
		t.Fatal("second lookup for the same key should wait for the first")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, dir.callCount())

	dir.notify("bob", "10.0.0.1:80")
	dir.complete(0, nil, 1)

	second := <-secondCh
	<-dir.started
	assert.Equal(t, 3, dir.callCount())
	assert.NotEqual(t, first.ID, second.ID)

	dir.notify("bob", "10.0.0.2:80")
	dir.complete(2, nil, 1)

	p1, _ := first.Wait(context.Background())
	p2, _ := second.Wait(context.Background())
	require.Len(t, p1, 1)
	require.Len(t, p2, 1)
	assert.Equal(t, "10.0.0.1:80", p1[0].String())
	assert.Equal(t, "10.0.0.2:80", p2[0].String())

	dir.complete(1, nil, 0)
	<-other.Done()
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorDeadline(t *testing.T) {
	c, dir := newTestCorrelator(t, 50*time.Millisecond)

	start := time.Now()
	p, err := c.Discover(context.Background(), "bob")
	<-dir.started

	assert.True(t, errors.Is(err, ErrLookupTimeout), "expected a timeout, got %v", err)
	assert.Empty(t, p)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, c.Pending())

	// the directory completing late is harmless
	dir.complete(0, nil, 0)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorDeadlineKeepsFoundPeers(t *testing.T) {
	c, dir := newTestCorrelator(t, 50*time.Millisecond)

	lookup, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started
	dir.notify("bob", "10.0.0.1:80")

	p, err := lookup.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, p, 1)
}

func TestCorrelatorLateNotification(t *testing.T) {
	c, dir := newTestCorrelator(t, time.Second)

	lookup, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started

	dir.notify("bob", "10.0.0.1:80")
	dir.complete(0, nil, 1)
	<-lookup.Done()

	dir.notify("bob", "10.0.0.9:80")

	p := lookup.Peers()
	require.Len(t, p, 1)
	assert.Equal(t, "10.0.0.1:80", p[0].String())
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorAbandonedLookupResults(t *testing.T) {
	c, dir := newTestCorrelator(t, 50*time.Millisecond)

	first, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started

	<-first.Done()
	assert.True(t, errors.Is(first.Err(), ErrLookupTimeout), "got %v", first.Err())

	second, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started
	require.NotEqual(t, dir.lookupID(0), dir.lookupID(1))

	// the directory answers the abandoned lookup after the new one started
	dir.notifyFor("bob", dir.lookupID(0), "10.6.6.6:80")
	dir.complete(0, nil, 1)
	dir.notifyFor("bob", dir.lookupID(1), "10.0.0.1:80")
	dir.complete(1, nil, 1)

	p, err := second.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "10.0.0.1:80", p[0].String())
	assert.Empty(t, first.Peers())
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorContext(t *testing.T) {
	c, dir := newTestCorrelator(t, 5*time.Second)

	_, err := c.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	<-dir.started

	// waiting behind an outstanding lookup
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Discover(ctx, "bob")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	// cancelling the caller releases its own slot
	ctx2, cancel2 := context.WithCancel(context.Background())
	lookup, err := c.Lookup(ctx2, "carol")
	require.NoError(t, err)
	<-dir.started
	cancel2()
	<-lookup.Done()
	assert.True(t, errors.Is(lookup.Err(), context.Canceled))
	assert.Equal(t, 1, c.Pending())
}

func TestCorrelatorDirectoryError(t *testing.T) {
	c, dir := newTestCorrelator(t, time.Second)

	boom := errors.New("boom")
	go func() {
		<-dir.started
		dir.complete(0, boom, 0)
	}()

	_, err := c.Discover(context.Background(), "bob")
	assert.Equal(t, boom, err)
}
