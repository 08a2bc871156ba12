package speech

import (
	"sync"
	"testing"
)

func TestSignalSetIsIdempotent(t *testing.T) {
	s := NewSignal()
	if s.IsSet() {
		t.Error("Expected fresh signal to be unset")
	}

	s.Set()
	s.Set()
	s.Set()

	if !s.IsSet() {
		t.Error("Expected signal to be set")
	}
}

func TestSignalDoneChannel(t *testing.T) {
	s := NewSignal()

	select {
	case <-s.Done():
		t.Fatal("Expected Done channel to block before Set")
	default:
	}

	s.Set()

	select {
	case <-s.Done():
	default:
		t.Error("Expected Done channel to be closed after Set")
	}
}

func TestSignalConcurrentSet(t *testing.T) {
	s := NewSignal()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
		}()
	}
	wg.Wait()

	if !s.IsSet() {
		t.Error("Expected signal to be set after concurrent Sets")
	}
}
