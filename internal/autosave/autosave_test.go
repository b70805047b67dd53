package autosave

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	saves []int
}

func (r *recorder) save(v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, v)
	return nil
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.saves...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	var value atomic.Int64
	rec := &recorder{}
	d := New(100*time.Millisecond, func() int { return int(value.Load()) }, rec.save, nil)

	for i := 1; i <= 10; i++ {
		value.Store(int64(i))
		d.Touch()
		time.Sleep(2 * time.Millisecond)
	}
	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(150 * time.Millisecond)

	saves := rec.snapshot()
	if len(saves) != 1 {
		t.Fatalf("saves = %v, want exactly one", saves)
	}
	if saves[0] != 10 {
		t.Errorf("saved %d, want latest value 10", saves[0])
	}
}

func TestDebouncer_ReadsValueAtFireTime(t *testing.T) {
	var value atomic.Int64
	rec := &recorder{}
	d := New(20*time.Millisecond, func() int { return int(value.Load()) }, rec.save, nil)

	value.Store(1)
	d.Touch()
	// Changed without a Touch: the write must still see it.
	value.Store(2)
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	if got := rec.snapshot()[0]; got != 2 {
		t.Errorf("saved %d, want 2", got)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, func() int { return 5 }, rec.save, nil)
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("flush without a change should not save")
	}
	d.Touch()
	if !d.Pending() {
		t.Error("expected pending write")
	}
	if err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != 5 {
		t.Errorf("saves = %v", got)
	}
	if d.Pending() {
		t.Error("flush should clear pending")
	}
}

func TestDebouncer_Stop(t *testing.T) {
	rec := &recorder{}
	d := New(10*time.Millisecond, func() int { return 1 }, rec.save, nil)
	d.Touch()
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	d.Touch()
	time.Sleep(40 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("saves after stop = %v", got)
	}
}

func TestDebouncer_ReportsErrors(t *testing.T) {
	boom := errors.New("disk full")
	errs := make(chan error, 1)
	d := New(5*time.Millisecond, func() int { return 0 }, func(int) error { return boom }, func(err error) { errs <- err })
	d.Touch()
	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error not reported")
	}
}

func TestNew_DefaultDelay(t *testing.T) {
	d := New(0, func() int { return 0 }, func(int) error { return nil }, nil)
	if d.delay != DefaultDelay {
		t.Errorf("delay = %v", d.delay)
	}
}
