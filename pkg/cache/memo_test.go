package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoGetSet(t *testing.T) {
	m := NewMemo[int]()
	if _, ok := m.Get("a"); ok {
		t.Fatalf("empty memo reported a hit")
	}
	m.Set("a", 7)
	v, ok := m.Get("a")
	if !ok || v != 7 {
		t.Fatalf("got %d/%v, want 7/true", v, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestGetOrComputeRunsOnce(t *testing.T) {
	m := NewMemo[string]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.GetOrCompute("k", func() (string, error) {
				calls.Add(1)
				return "value", nil
			})
			if err != nil || v != "value" {
				t.Errorf("got %q err %v", v, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute ran %d times, want 1", calls.Load())
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	m := NewMemo[int]()
	boom := errors.New("boom")
	if _, err := m.GetOrCompute("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := m.GetOrCompute("k", func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("retry after error got %d/%v", v, err)
	}
}
