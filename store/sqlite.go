package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/store/migrations"
)

// goose 的 BaseFS/Dialect 是包级状态
var gooseMu sync.Mutex

// runMigrations 使用内嵌的 SQL 文件执行全部未应用的迁移。
func runMigrations(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// sqliteDSN 把 pragma 写进 DSN，连接池里每个新连接都会应用。
func sqliteDSN(path string) string {
	pragmas := []string{
		"busy_timeout(5000)",
		"journal_mode(WAL)",
		"synchronous(NORMAL)",
	}
	q := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		q = append(q, "_pragma="+p)
	}
	return path + "?" + strings.Join(q, "&")
}

// OpenSQLite 打开（或创建）SQLite 数据库并执行迁移，返回共享同一连接池的两个存储。
func OpenSQLite(ctx context.Context, path string) (*SQLiteInteractionStore, *SQLiteCatalogStore, error) {
	if path == "" {
		return nil, nil, errors.New("sqlite path is empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// 每个连接都是独立的内存库
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	shared := newSharedCloser(2, db.Close)
	return &SQLiteInteractionStore{db: db, h: &handle{shared: shared}},
		&SQLiteCatalogStore{db: db, h: &handle{shared: shared}},
		nil
}

// SQLiteInteractionStore 按自增 seq 保存写入顺序，每条事件带一个 ULID。
type SQLiteInteractionStore struct {
	db *sql.DB
	h  *handle
}

func (s *SQLiteInteractionStore) Name() string { return DriverSQLite }

func (s *SQLiteInteractionStore) Append(ctx context.Context, ev core.InteractionEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interaction_events (id, user_id, product_id, rating, b2b_unit, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), ev.UserID, ev.ProductID, ev.Rating, ev.TenantID, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLiteInteractionStore) ReadAll(ctx context.Context) ([]core.InteractionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, product_id, rating, b2b_unit, timestamp
		 FROM interaction_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []core.InteractionEvent
	for rows.Next() {
		var ev core.InteractionEvent
		if err := rows.Scan(&ev.UserID, &ev.ProductID, &ev.Rating, &ev.TenantID, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *SQLiteInteractionStore) Close() error { return s.h.Close() }

// SQLiteCatalogStore 依赖 product_id 的唯一约束实现原子的 upsert-if-absent。
type SQLiteCatalogStore struct {
	db *sql.DB
	h  *handle
}

func (s *SQLiteCatalogStore) Name() string { return DriverSQLite }

func (s *SQLiteCatalogStore) Lookup(ctx context.Context, productID string) (core.Product, bool, error) {
	p := core.Product{ProductID: productID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, category FROM products WHERE product_id = ?`, productID,
	).Scan(&p.Name, &p.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, false, nil
	}
	if err != nil {
		return core.Product{}, false, fmt.Errorf("query product: %w", err)
	}
	return p, true, nil
}

func (s *SQLiteCatalogStore) UpsertIfAbsent(ctx context.Context, p core.Product) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (product_id, name, category) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO NOTHING`,
		p.ProductID, p.Name, p.Category,
	)
	if err != nil {
		return false, fmt.Errorf("insert product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteCatalogStore) ReadAll(ctx context.Context) ([]core.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, name, category FROM products ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Category); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func (s *SQLiteCatalogStore) Close() error { return s.h.Close() }

var (
	_ core.InteractionStore = (*SQLiteInteractionStore)(nil)
	_ core.CatalogStore     = (*SQLiteCatalogStore)(nil)
)
