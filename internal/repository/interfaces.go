// Package repository はデータ永続化の実装を提供する。
package repository

import (
	"context"
	"database/sql"
)

// DB はリポジトリが使用するデータベース操作のインターフェース。
// *sql.DB が満たす。
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
