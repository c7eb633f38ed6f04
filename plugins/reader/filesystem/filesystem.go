package filesystem

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"romancalc/pkg/contract"
)

// StdinID: 从标准输入读取时使用的 FileID。
const StdinID contract.FileID = "stdin"

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配，大小写不敏感）。
	// 仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `json:"exclude_dir_names"`
	// SkipHidden: 目录递归时跳过以 "." 开头的文件与目录。
	SkipHidden bool `json:"skip_hidden"`
	// IncludeExts: 目录递归时仅读取这些扩展名（含点，大小写不敏感）；为空表示不限制。
	// 显式给出的文件 root 总会被读取。
	IncludeExts []string `json:"include_exts"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
type FileSystem struct {
	bufSize    int
	excludeDir map[string]struct{}
	include    map[string]struct{}
	skipHidden bool
	stdin      io.Reader
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	r := &FileSystem{bufSize: defaultBuf, stdin: os.Stdin}
	if opts == nil {
		return r
	}
	if opts.BufSize > 0 {
		r.bufSize = opts.BufSize
	}
	r.skipHidden = opts.SkipHidden
	r.excludeDir = lowerSet(opts.ExcludeDirNames)
	r.include = lowerSet(opts.IncludeExts)
	return r
}

// WithStdin 替换标准输入来源（用于测试与嵌入调用）。
func (r *FileSystem) WithStdin(in io.Reader) *FileSystem {
	r.stdin = in
	return r
}

var _ contract.Reader = (*FileSystem)(nil)

func lowerSet(items []string) map[string]struct{} {
	var m map[string]struct{}
	for _, s := range items {
		if s == "" {
			continue
		}
		if m == nil {
			m = make(map[string]struct{}, len(items))
		}
		m[strings.ToLower(s)] = struct{}{}
	}
	return m
}

// Iterate 遍历 roots，按稳定顺序对每个常规文件调用 yield。
// roots 为空或仅包含 "-" 时读取 STDIN；"-" 不可与其他 root 混用。
// yield 负责关闭传入的 ReadCloser；yield 返回错误时由本函数关闭。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		return yield(StdinID, r.buffered(io.NopCloser(r.stdin)))
	}
	for _, s := range roots {
		if s == "-" {
			return errors.New("stdin '-' cannot be mixed with other roots")
		}
	}
	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	ok, err := regularTarget(root, info)
	if err != nil || !ok {
		return err
	}
	return r.emit(root, yield)
}

// regularTarget 判断路径是否为常规文件或指向常规文件的符号链接；目录符号链接不跟随。
func regularTarget(p string, info os.FileInfo) (bool, error) {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular(), nil
	}
	t, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return t.Mode().IsRegular(), nil
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序；先子目录，后文件
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.IsDir() || r.hidden(e.Name()) {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || r.hidden(e.Name()) || !r.included(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return err
		}
		ok, err := regularTarget(p, info)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.emit(p, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) hidden(name string) bool {
	return r.skipHidden && strings.HasPrefix(name, ".")
}

func (r *FileSystem) included(name string) bool {
	if r.include == nil {
		return true
	}
	_, ok := r.include[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (r *FileSystem) emit(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := r.buffered(f)
	if err := yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func (r *FileSystem) buffered(c io.ReadCloser) *bufferedCloser {
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, r.bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
