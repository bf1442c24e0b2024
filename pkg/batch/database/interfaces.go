package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBConnection はデータベース接続のインターフェースです。
// sql.DB の必要なメソッドを抽象化します。
type DBConnection interface {
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	// Type は接続先のデータベースタイプ (postgres, mysql, snowflake) を返します。
	Type() string
	// DB はマイグレーション等で使用する *sql.DB を返します。
	DB() *sql.DB
}

// sqlDBAdapter は sql.DB を DBConnection インターフェースに適合させるアダプターです。
type sqlDBAdapter struct {
	db     *sql.DB
	dbType string
}

// NewSQLDBAdapter は新しい sqlDBAdapter のインスタンスを作成します。
func NewSQLDBAdapter(db *sql.DB, dbType string) DBConnection {
	return &sqlDBAdapter{db: db, dbType: strings.ToLower(dbType)}
}

func (a *sqlDBAdapter) Close() error                          { return a.db.Close() }
func (a *sqlDBAdapter) PingContext(ctx context.Context) error { return a.db.PingContext(ctx) }
func (a *sqlDBAdapter) Type() string                          { return a.dbType }
func (a *sqlDBAdapter) DB() *sql.DB                           { return a.db }

func (a *sqlDBAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlDBAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, Rebind(a.dbType, query), args...)
}

func (a *sqlDBAdapter) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return a.db.QueryRowContext(ctx, Rebind(a.dbType, query), args...)
}

// Rebind は "?" プレースホルダで書かれたクエリを、データベースタイプに応じた形式に変換します。
// postgres では $1, $2, ... に置き換え、それ以外はそのまま返します。
// 文字列リテラル内の "?" は置き換えません。
func Rebind(dbType, query string) string {
	if dbType != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
