package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/unitrec/core"
)

var errDiskGone = errors.New("disk gone")

// flakyEvents 在 fail 为 true 时所有操作都返回错误
type flakyEvents struct {
	*MemoryInteractionStore
	fail  bool
	calls int
}

func (f *flakyEvents) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	f.calls++
	if f.fail {
		return nil, errDiskGone
	}
	return f.MemoryInteractionStore.ReadAll(ctx)
}

func TestBreakerInteractionStore_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyEvents{MemoryInteractionStore: NewMemoryInteractionStore(), fail: true}
	s := NewBreakerInteractionStore(inner, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := s.ReadAll(ctx)
		if !errors.Is(err, errDiskGone) {
			t.Fatalf("call %d: expected underlying error, got %v", i, err)
		}
	}
	if s.State() != "open" {
		t.Fatalf("expected breaker open, got %s", s.State())
	}

	_, err := s.ReadAll(ctx)
	if !core.IsUnavailable(err) {
		t.Fatalf("expected StorageUnavailable while open, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("open breaker should not reach the store, calls=%d", inner.calls)
	}
}

func TestBreakerInteractionStore_CanceledContextDoesNotTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewBreakerInteractionStore(NewMemoryInteractionStore(), BreakerConfig{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		if _, err := s.ReadAll(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if s.State() != "closed" {
		t.Errorf("expected breaker closed, got %s", s.State())
	}
}

func TestBreakerCatalogStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	s := NewBreakerCatalogStore(NewMemoryCatalogStore(), BreakerConfig{})

	created, err := s.UpsertIfAbsent(ctx, core.NewPlaceholderProduct("p1"))
	if err != nil || !created {
		t.Fatalf("UpsertIfAbsent: created=%v err=%v", created, err)
	}
	p, ok, err := s.Lookup(ctx, "p1")
	if err != nil || !ok || p.Name != core.UnknownPlaceholder {
		t.Fatalf("Lookup: %+v ok=%v err=%v", p, ok, err)
	}
	if _, ok, _ := s.Lookup(ctx, "missing"); ok {
		t.Error("expected missing product")
	}
	all, err := s.ReadAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ReadAll: %v %v", all, err)
	}
	if s.Name() != DriverMemory {
		t.Errorf("Name() = %s", s.Name())
	}
}
