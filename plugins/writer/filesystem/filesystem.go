package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"romancalc/pkg/contract"
)

// sidecarExt: 边车工件的扩展名。
const sidecarExt = ".jsonl"

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// OutputName: 固定输出文件名（如 "output.txt"）。设置后仅允许单个源文件写出，
	// 其边车为 OutputName + ".jsonl"。与 Ext 互斥。
	OutputName string `json:"output_name,omitempty"`
	// Ext: 替换工件扩展名（含点，如 ".out"）；为空保持源文件名。
	Ext string `json:"ext,omitempty"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。默认 true。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat: 是否扁平化输出（仅保留文件名，不保留目录层级）。默认 true。
	Flat *bool `json:"flat,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用默认 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用默认 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 将工件写入本地目录。
type FS struct {
	root    string
	name    string
	ext     string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int

	mu    sync.Mutex
	owner contract.ArtifactID // OutputName 模式下已占用该名称的源
}

// New 创建文件系统 Writer 实现。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, os.ErrInvalid
	}
	if opts.OutputName != "" {
		if opts.Ext != "" {
			return nil, fmt.Errorf("%w: output_name and ext are mutually exclusive", os.ErrInvalid)
		}
		if filepath.Base(opts.OutputName) != opts.OutputName || opts.OutputName == "." || opts.OutputName == ".." {
			return nil, fmt.Errorf("%w: output_name must be a bare file name", os.ErrInvalid)
		}
	}
	if opts.Ext != "" && (!strings.HasPrefix(opts.Ext, ".") || strings.ContainsAny(opts.Ext, `/\`)) {
		return nil, fmt.Errorf("%w: ext must start with '.'", os.ErrInvalid)
	}
	w := &FS{
		root:    opts.OutputDir,
		name:    opts.OutputName,
		ext:     opts.Ext,
		atomic:  true,
		flat:    true,
		permF:   0o644,
		permD:   0o755,
		bufSize: 64 * 1024,
	}
	if opts.Atomic != nil {
		w.atomic = *opts.Atomic
	}
	if opts.Flat != nil {
		w.flat = *opts.Flat
	}
	if opts.PermFile != 0 {
		w.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		w.permD = opts.PermDir
	}
	if opts.BufSize > 0 {
		w.bufSize = opts.BufSize
	}
	return w, nil
}

var (
	_ contract.Writer  = (*FS)(nil)
	_ contract.Locator = (*FS)(nil)
)

// Location 返回输出目录；固定文件名模式下返回该文件路径。
func (w *FS) Location() string {
	if w.name != "" {
		return filepath.Join(w.root, w.name)
	}
	return w.root
}

// Write 将 r 的全部字节写入到基于 id 映射的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.target(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// target 计算工件落点：边车跟随主工件命名；拒绝覆盖源文件本身。
func (w *FS) target(id contract.ArtifactID) (string, error) {
	base := string(id)
	sidecar := strings.HasSuffix(base, sidecarExt)
	if sidecar {
		base = strings.TrimSuffix(base, sidecarExt)
	}
	var dest string
	if w.name != "" {
		if err := w.claim(contract.ArtifactID(base)); err != nil {
			return "", err
		}
		dest = filepath.Join(w.root, w.name)
	} else {
		p, err := w.mapPath(contract.ArtifactID(base))
		if err != nil {
			return "", err
		}
		if w.ext != "" {
			p = strings.TrimSuffix(p, filepath.Ext(p)) + w.ext
		}
		dest = p
	}
	if sidecar {
		return dest + sidecarExt, nil
	}
	if sameFile(dest, base) {
		return "", fmt.Errorf("%w: output %s would overwrite its source", contract.ErrPathInvalid, dest)
	}
	return dest, nil
}

// claim 在 OutputName 模式下登记唯一的源工件。
func (w *FS) claim(src contract.ArtifactID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owner == "" {
		w.owner = src
		return nil
	}
	if w.owner != src {
		return fmt.Errorf("%w: output_name %q already holds %s; cannot also write %s", contract.ErrPathInvalid, w.name, w.owner, src)
	}
	return nil
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(filepath.FromSlash(b))
	return err1 == nil && err2 == nil && aa == bb
}

// mapPath: Clean + Join + 越界校验。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	// Flat 优先：仅保留文件名
	if w.flat {
		rel = filepath.Base(rel)
		if rel == "." || rel == ".." || rel == "" || rel == string(filepath.Separator) {
			return "", contract.ErrPathInvalid
		}
		return filepath.Join(w.root, rel), nil
	}
	// 非扁平：禁止绝对路径、父级逃逸、Windows 卷名
	if rel == "." || rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", contract.ErrPathInvalid
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 尽力同步父目录
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
