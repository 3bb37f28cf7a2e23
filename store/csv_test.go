package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rushteam/unitrec/core"
)

func TestCSVInteractionStore_ReadsLegacyLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogsFileName)
	// 列顺序不同、缺少 timestamp 列
	legacy := "b2bUnit,userId,productId,rating\nunitA,u1,101,1\nunitA,u2,102,1\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCSVInteractionStore(path).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []core.InteractionEvent{
		{UserID: "u1", ProductID: "101", Rating: 1, TenantID: "unitA"},
		{UserID: "u2", ProductID: "102", Rating: 1, TenantID: "unitA"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCSVInteractionStore_WritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVInteractionStore(filepath.Join(dir, LogsFileName))
	ctx := context.Background()
	for _, p := range []string{"p1", "p2"} {
		if err := s.Append(ctx, core.NewInteractionEvent("u1", p, "unitA", "t")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, LogsFileName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %q", lines)
	}
	if lines[0] != "userId,productId,rating,b2bUnit,timestamp" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "u1,p1,1,unitA,t" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestCSVCatalogStore_LoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProductsFileName)
	if err := os.WriteFile(path, []byte("productId,name,category\n101,Shoe,Apparel\n102,\"Mug, large\",Kitchen\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewCSVCatalogStore(path)
	if err != nil {
		t.Fatalf("NewCSVCatalogStore: %v", err)
	}
	p, ok, err := s.Lookup(context.Background(), "102")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if p.Name != "Mug, large" || p.Category != "Kitchen" {
		t.Errorf("unexpected product %+v", p)
	}

	// 重新打开后仍能看到新增的占位商品
	if _, err := s.UpsertIfAbsent(context.Background(), core.NewPlaceholderProduct("103")); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewCSVCatalogStore(path)
	if err != nil {
		t.Fatal(err)
	}
	all, err := reopened.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].ProductID != "103" || all[2].Name != core.UnknownPlaceholder {
		t.Errorf("unexpected catalog after reopen: %+v", all)
	}
}

func TestCSVInteractionStore_BadRating(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogsFileName)
	if err := os.WriteFile(path, []byte("userId,productId,rating\nu1,p1,abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCSVInteractionStore(path).ReadAll(context.Background()); err == nil {
		t.Fatal("expected parse error for non-numeric rating")
	}
}

func TestCSVStores_SharedAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	// 两个句柄模拟 serve 进程与命令行 ingest 同时打开同一目录
	serverEvents, serverCatalog, err := OpenCSV(dir)
	if err != nil {
		t.Fatal(err)
	}
	cliEvents, cliCatalog, err := OpenCSV(dir)
	if err != nil {
		t.Fatal(err)
	}

	created, err := cliCatalog.UpsertIfAbsent(ctx, core.NewPlaceholderProduct("p1"))
	if err != nil || !created {
		t.Fatalf("cli upsert: created=%v err=%v", created, err)
	}
	if err := cliEvents.Append(ctx, core.NewInteractionEvent("u1", "p1", "t1", "")); err != nil {
		t.Fatal(err)
	}

	all, err := serverCatalog.ReadAll(ctx)
	if err != nil || len(all) != 1 || all[0].ProductID != "p1" {
		t.Fatalf("server ReadAll = %+v, %v", all, err)
	}
	if _, ok, err := serverCatalog.Lookup(ctx, "p1"); err != nil || !ok {
		t.Fatalf("server Lookup: ok=%v err=%v", ok, err)
	}
	created, err = serverCatalog.UpsertIfAbsent(ctx, core.NewPlaceholderProduct("p1"))
	if err != nil || created {
		t.Fatalf("server upsert of existing product: created=%v err=%v", created, err)
	}
	events, err := serverEvents.ReadAll(ctx)
	if err != nil || len(events) != 1 {
		t.Fatalf("server events = %+v, %v", events, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ProductsFileName))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "p1,"); n != 1 {
		t.Errorf("products.csv has %d rows for p1:\n%s", n, data)
	}
}

func TestCSVCatalogStore_ConcurrentHandlesCreateOnce(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	stores := make([]*CSVCatalogStore, 4)
	for i := range stores {
		_, c, err := OpenCSV(dir)
		if err != nil {
			t.Fatal(err)
		}
		stores[i] = c
	}

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for _, s := range stores {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.UpsertIfAbsent(ctx, core.NewPlaceholderProduct("hot"))
				if err != nil {
					t.Error(err)
				}
				if ok {
					created.Add(1)
				}
			}()
		}
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("placeholder created %d times, want 1", created.Load())
	}
	all, err := stores[0].ReadAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("catalog = %+v, %v", all, err)
	}
}
