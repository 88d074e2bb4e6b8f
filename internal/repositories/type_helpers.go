package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx 是 *pgxpool.Pool 与 pgx.Tx 的公共查询接口。
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn 在事务 Session 存在时返回事务句柄，否则回落到连接池。
// 回落到连接池的调用互不共享连接，可被并发调用。
func conn(db *pgxpool.Pool, sess txmanager.Session) dbtx {
	if sess != nil {
		return sess.Tx()
	}
	return db
}

const pgUniqueViolation = "23505"

// uniqueViolation 返回违反的唯一约束名；非唯一约束错误返回空串。
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

// likePattern 转义 LIKE 通配符，构造 "包含" 匹配模式。
func likePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(query)) + "%"
}
