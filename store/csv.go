package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/rushteam/unitrec/core"
)

// CSV 文件名与表头，与历史数据格式保持一致
const (
	LogsFileName     = "logs.csv"
	ProductsFileName = "products.csv"
)

var (
	logsHeader     = []string{"userId", "productId", "rating", "b2bUnit", "timestamp"}
	productsHeader = []string{"productId", "name", "category"}
)

// OpenCSV 在 dir 下打开 logs.csv / products.csv，目录不存在时自动创建。
func OpenCSV(dir string) (*CSVInteractionStore, *CSVCatalogStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	events := NewCSVInteractionStore(filepath.Join(dir, LogsFileName))
	catalog, err := NewCSVCatalogStore(filepath.Join(dir, ProductsFileName))
	if err != nil {
		return nil, nil, err
	}
	return events, catalog, nil
}

// CSVInteractionStore 把交互日志追加写入 CSV 文件。
// 每次 Append 在进程锁和文件锁内写完一整行并 flush，ReadAll 不会读到半行。
type CSVInteractionStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewCSVInteractionStore(path string) *CSVInteractionStore {
	return &CSVInteractionStore{path: path, lock: flock.New(path + lockSuffix)}
}

func (s *CSVInteractionStore) Name() string { return DriverCSV }

func (s *CSVInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return withFileLock(ctx, s.lock, true, func() error {
		return appendCSVRow(s.path, logsHeader, []string{
			ev.UserID,
			ev.ProductID,
			strconv.FormatFloat(ev.Rating, 'f', -1, 64),
			ev.TenantID,
			ev.Timestamp,
		})
	})
}

func (s *CSVInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.InteractionEvent
	err := withFileLock(ctx, s.lock, false, func() error {
		return readCSV(s.path, func(col columns, rec []string) error {
			ev, err := parseEvent(col, rec)
			if err != nil {
				return err
			}
			out = append(out, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseEvent(col columns, rec []string) (core.InteractionEvent, error) {
	ev := core.InteractionEvent{
		UserID:    col.get(rec, "userId"),
		ProductID: col.get(rec, "productId"),
		Rating:    core.ImplicitRating,
		TenantID:  col.get(rec, "b2bUnit"),
		Timestamp: col.get(rec, "timestamp"),
	}
	if raw := col.get(rec, "rating"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ev, fmt.Errorf("parse rating %q: %w", raw, err)
		}
		ev.Rating = r
	}
	return ev, nil
}

func (s *CSVInteractionStore) Close() error { return nil }

// CSVCatalogStore 是 products.csv 的实现。
// 不缓存索引：每次调用都在文件锁内重新读取文件，serve 与命令行 ingest 等多个进程
// 同时打开同一目录时也能看到彼此的写入，UpsertIfAbsent 的查重与追加在同一把排他锁内完成。
type CSVCatalogStore struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewCSVCatalogStore(path string) (*CSVCatalogStore, error) {
	s := &CSVCatalogStore{path: path, lock: flock.New(path + lockSuffix)}
	// 打开时校验一次文件格式
	if _, err := s.ReadAll(context.Background()); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return s, nil
}

func (s *CSVCatalogStore) Name() string { return DriverCSV }

func (s *CSVCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	products, err := s.ReadAll(ctx)
	if err != nil {
		return core.Product{}, false, err
	}
	for _, p := range products {
		if p.ProductID == productID {
			return p, true, nil
		}
	}
	return core.Product{}, false, nil
}

func (s *CSVCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := false
	err := withFileLock(ctx, s.lock, true, func() error {
		products, err := s.load()
		if err != nil {
			return err
		}
		for _, existing := range products {
			if existing.ProductID == p.ProductID {
				return nil
			}
		}
		if err := appendCSVRow(s.path, productsHeader, []string{p.ProductID, p.Name, p.Category}); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// ReadAll 按文件顺序返回商品，同一 productId 只保留第一行。
func (s *CSVCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Product
	err := withFileLock(ctx, s.lock, false, func() error {
		var err error
		out, err = s.load()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CSVCatalogStore) load() ([]core.Product, error) {
	seen := make(map[string]struct{})
	out := make([]core.Product, 0)
	err := readCSV(s.path, func(col columns, rec []string) error {
		p := core.Product{
			ProductID: col.get(rec, "productId"),
			Name:      col.get(rec, "name"),
			Category:  col.get(rec, "category"),
		}
		if _, ok := seen[p.ProductID]; ok {
			return nil
		}
		seen[p.ProductID] = struct{}{}
		out = append(out, p)
		return nil
	})
	return out, err
}

func (s *CSVCatalogStore) Close() error { return nil }

// lockSuffix 是跨进程文件锁的文件名后缀，例如 products.csv.lock
const lockSuffix = ".lock"

// lockRetryDelay 是等待其他进程释放文件锁时的重试间隔
const lockRetryDelay = 5 * time.Millisecond

// withFileLock 在跨进程文件锁内执行 fn，exclusive 为 false 时使用共享锁。等待锁时响应 ctx 取消。
func withFileLock(ctx context.Context, fl *flock.Flock, exclusive bool, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := fl.TryRLockContext
	if exclusive {
		lock = fl.TryLockContext
	}
	ok, err := lock(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", fl.Path())
	}
	defer fl.Unlock()
	return fn()
}

// columns 是表头名到列下标的映射，兼容列顺序不同或缺列的历史文件。
type columns map[string]int

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// readCSV 逐行读取 CSV，文件不存在视为空表。
func readCSV(path string, fn func(col columns, rec []string) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}
	col := make(columns, len(header))
	for i, name := range header {
		col[name] = i
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := fn(col, rec); err != nil {
			return err
		}
	}
}

// appendCSVRow 追加一行，文件为空时先写表头。
func appendCSVRow(path string, header, row []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Sync()
}

var (
	_ core.InteractionStore = (*CSVInteractionStore)(nil)
	_ core.CatalogStore     = (*CSVCatalogStore)(nil)
)
