package worker

import (
	"errors"
	"sync"
	"testing"

	"github.com/oomph-ac/contactsim/oerror"
	"go.uber.org/atomic"
)

func TestNewRejectsEmptyPool(t *testing.T) {
	if _, err := New(0); !errors.Is(err, oerror.ErrResourceCreation) {
		t.Fatalf("expected ErrResourceCreation, got %v", err)
	}
}

func TestRunVisitsEveryIndexOnce(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for _, n := range []int{0, 1, 2, 3, 17} {
		var mu sync.Mutex
		seen := make(map[int]int)
		if err := p.Run(n, func(i int) error {
			mu.Lock()
			seen[i]++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("n=%d: unexpected error %v", n, err)
		}
		if len(seen) != n {
			t.Fatalf("n=%d: visited %d indices", n, len(seen))
		}
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, c)
			}
		}
	}
}

func TestRunReportsErrorsAndPanics(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	boom := errors.New("boom")
	if err := p.Run(4, func(i int) error {
		if i == 3 {
			return boom
		}
		return nil
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if err := p.Run(4, func(i int) error {
		if i == 0 {
			panic("solver exploded")
		}
		return nil
	}); err == nil {
		t.Fatalf("expected the panic to surface as an error")
	}

	// The workers must survive the panic.
	var calls atomic.Int64
	if err := p.Run(8, func(int) error {
		calls.Inc()
		return nil
	}); err != nil || calls.Load() != 8 {
		t.Fatalf("pool unusable after a panic: err=%v calls=%d", err, calls.Load())
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	p.Close()
	p.Close()
	if err := p.Submit(func() {}); err == nil {
		t.Fatalf("expected submit on a closed pool to fail")
	}
	if err := p.Run(3, func(int) error { return nil }); err == nil {
		t.Fatalf("expected run on a closed pool to fail")
	}
}
