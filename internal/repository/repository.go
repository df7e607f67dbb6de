// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// DB 数据库接口
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 单行扫描接口，*sql.Row 与 *sql.Rows 均满足
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Rows 多行结果接口，*sql.Rows 满足
type Rows interface {
	Scanner
	Next() bool
	Err() error
	Close() error
}
