// Package migrations 内嵌 SQLite 存储的 goose 迁移文件。
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
