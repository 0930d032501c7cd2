package state

import (
	"sync"
	"testing"
)

func TestGoFuncLimit(t *testing.T) {
	var m Manager

	release := make(chan struct{})
	var started sync.WaitGroup

	for i := 0; i < WGLIMIT; i++ {
		started.Add(1)
		ok := m.GoFunc(func() {
			started.Done()
			<-release
		})
		if !ok {
			t.Fatalf("goroutine %d should have been launched", i)
		}
	}
	started.Wait()

	if m.GoFunc(func() {}) {
		t.Fatalf("GoFunc should refuse to go over the limit")
	}
	if m.Routines() != WGLIMIT {
		t.Fatalf("expected %d routines, got %d", WGLIMIT, m.Routines())
	}

	close(release)
	m.WaitRoutines()

	if m.Routines() != 0 {
		t.Fatalf("expected 0 routines, got %d", m.Routines())
	}
	if !m.GoFunc(func() {}) {
		t.Fatalf("GoFunc should accept work again")
	}
	m.WaitRoutines()
}

func TestState(t *testing.T) {
	var m Manager
	if m.GetState() != Starting {
		t.Fatalf("zero Manager should be Starting")
	}
	m.SetState(Running)
	if m.GetState().String() != "Running" {
		t.Fatalf("expected Running, got %s", m.GetState())
	}
}
