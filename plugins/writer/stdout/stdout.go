package stdout

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"romancalc/pkg/contract"
)

// Options: 标准输出 Writer 的可选配置。
type Options struct {
	// Header: 多文件时在每个工件前输出 "==> <id> <==" 标题行。
	Header bool `json:"header"`
}

// Stdout 将主工件直接写到标准输出；不写边车。
type Stdout struct {
	mu     sync.Mutex
	out    io.Writer
	header bool
}

// New 创建标准输出 Writer。
func New(opts *Options) *Stdout {
	s := &Stdout{out: os.Stdout}
	if opts != nil {
		s.header = opts.Header
	}
	return s
}

// WithOutput 替换输出目标（用于测试与嵌入调用）。
func (s *Stdout) WithOutput(w io.Writer) *Stdout {
	s.out = w
	return s
}

var (
	_ contract.Writer         = (*Stdout)(nil)
	_ contract.SidecarSkipper = (*Stdout)(nil)
	_ contract.Locator        = (*Stdout)(nil)
)

// SkipSidecar 标准输出不承载边车。
func (s *Stdout) SkipSidecar() bool { return true }

// Location 返回 "stdout"。
func (s *Stdout) Location() string { return "stdout" }

// Write 串行写出整个工件，保证多工件输出不交错。
func (s *Stdout) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bw := bufio.NewWriter(s.out)
	if s.header {
		if _, err := io.WriteString(bw, "==> "+string(id)+" <==\n"); err != nil {
			return err
		}
	}
	if _, err := io.Copy(bw, r); err != nil {
		return err
	}
	return bw.Flush()
}
