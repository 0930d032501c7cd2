package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSync(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSyncErr(CommunicationFailure, "alice", cause)

	if !IsSync(err, CommunicationFailure) {
		t.Fatalf("IsSync should recognise CommunicationFailure")
	}
	if IsSync(err, DiscoveryFailure) {
		t.Fatalf("IsSync should not match DiscoveryFailure")
	}

	wrapped := fmt.Errorf("updating timeline: %w", err)
	if !IsSync(wrapped, CommunicationFailure) {
		t.Fatalf("IsSync should see through wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("cause should be reachable with errors.Is")
	}
	if IsSync(cause, CommunicationFailure) {
		t.Fatalf("plain errors are not SyncErr")
	}
}

func TestSyncErrMessage(t *testing.T) {
	err := NewSyncErr(DiscoveryFailure, "bob", nil)
	if err.Error() != "bob, Discovery Failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err.User() != "bob" || err.Type() != DiscoveryFailure {
		t.Fatalf("accessors do not match constructor arguments")
	}
}

func TestIsStore(t *testing.T) {
	err := NewStoreErr("Timeline", KeyNotFound, "carol")
	if !IsStore(err, KeyNotFound) {
		t.Fatalf("IsStore should match KeyNotFound")
	}
	if IsStore(err, Empty) {
		t.Fatalf("IsStore should not match Empty")
	}
	if err.Error() != "Timeline, carol, Not Found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
