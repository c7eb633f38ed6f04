package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"romancalc/pkg/contract"
)

const sidecarExt = ".jsonl"

// Options: SQLite 结果库配置。
type Options struct {
	// Path: 数据库文件路径（必需）。父目录不存在时自动创建。
	Path string `json:"path"`
	// BusyTimeoutMS: SQLite busy_timeout（毫秒）；<=0 使用 5000。
	BusyTimeoutMS int `json:"busy_timeout_ms,omitempty"`
}

// Store 将每个工件按行写入 SQLite：
//   - results(artifact, line, text)：主工件逐行文本；
//   - sidecar_rows(artifact, line, row)：JSONL 边车逐行原文；
//   - runs(id, artifact, kind, lines, written_at)：每次写入的记录。
//
// 同一工件的旧行在同一事务内整体替换。
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
	artifact TEXT NOT NULL,
	line INTEGER NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (artifact, line)
);
CREATE TABLE IF NOT EXISTS sidecar_rows (
	artifact TEXT NOT NULL,
	line INTEGER NOT NULL,
	row TEXT NOT NULL,
	PRIMARY KEY (artifact, line)
);
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	artifact TEXT NOT NULL,
	kind TEXT NOT NULL,
	lines INTEGER NOT NULL,
	written_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_artifact ON runs(artifact);
`

// New 打开（或创建）数据库并初始化表结构。
func New(opts *Options) (*Store, error) {
	if opts == nil || strings.TrimSpace(opts.Path) == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// 单连接：写入串行化，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)
	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: opts.Path}, nil
}

var (
	_ contract.Writer  = (*Store)(nil)
	_ contract.Locator = (*Store)(nil)
	_ io.Closer        = (*Store)(nil)
)

// Location 返回数据库路径。
func (s *Store) Location() string { return s.path }

// Close 关闭数据库连接。
func (s *Store) Close() error { return s.db.Close() }

// Write 读取 r 的全部行，在单个事务内替换该工件的既有行。
// 以 ".jsonl" 结尾的工件写入 sidecar_rows，其余写入 results。
func (s *Store) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	table, kind, artifact := "results", "result", string(id)
	col := "text"
	if strings.HasSuffix(artifact, sidecarExt) {
		table, kind, col = "sidecar_rows", "sidecar", "row"
		artifact = strings.TrimSuffix(artifact, sidecarExt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE artifact = ?", artifact); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (artifact, line, "+col+") VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	br := bufio.NewReader(r)
	var n int64
	for {
		line, rerr := br.ReadString('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return rerr
		}
		if line == "" && rerr != nil {
			break
		}
		n++
		line = strings.TrimSuffix(line, "\n")
		if _, err = stmt.ExecContext(ctx, artifact, n, line); err != nil {
			return fmt.Errorf("insert line %d: %w", n, err)
		}
		if rerr != nil {
			break
		}
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO runs (artifact, kind, lines, written_at) VALUES (?, ?, ?, ?)",
		artifact, kind, n, time.Now().UTC()); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return tx.Commit()
}

// Lines 返回工件在 results 表中的全部文本行（按行号升序）。
func (s *Store) Lines(ctx context.Context, artifact contract.ArtifactID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT text FROM results WHERE artifact = ? ORDER BY line", string(artifact))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}
