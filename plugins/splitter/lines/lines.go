package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"romancalc/pkg/contract"
)

// MetaTooLong: 超长行被截断时写入 Record.Meta 的键（值为原始字节数）。
const MetaTooLong = "too_long"

// Options 为按行 Splitter 的可选配置（最小必要）。
type Options struct {
	// MaxLineBytes: 单行最大字节数（不含换行）。0 表示不限制。
	// 超限行默认截断并在 Meta 中标记，由求值阶段输出格式错误。
	MaxLineBytes int `json:"max_line_bytes"`
	// FailOnLongLine: 为 true 时超长行使整个文件失败（ErrLineTooLong）。
	FailOnLongLine bool `json:"fail_on_long_line"`
	// AllowExts: 允许处理的文件扩展名（大小写不敏感，包含点，如 [".txt"]）。
	// 为空表示不限制。
	AllowExts []string `json:"allow_exts"`
}

// Splitter 实现按行拆分。
type Splitter struct {
	maxBytes int
	failLong bool
	// 允许扩展名（小写），若为 nil 表示不限制。
	allow map[string]struct{}
}

// New 创建按行 Splitter。
func New(opts *Options) *Splitter {
	s := &Splitter{}
	if opts == nil {
		return s
	}
	if opts.MaxLineBytes > 0 {
		s.maxBytes = opts.MaxLineBytes
	}
	s.failLong = opts.FailOnLongLine
	for _, e := range opts.AllowExts {
		if e == "" {
			continue
		}
		if s.allow == nil {
			s.allow = make(map[string]struct{}, len(opts.AllowExts))
		}
		s.allow[strings.ToLower(e)] = struct{}{}
	}
	return s
}

var _ contract.Splitter = (*Splitter)(nil)

// Split 将单个文件拆分为 []Record，每行一条。
// 末尾换行不产生额外空行；中间空行保留（求值阶段按格式错误处理）。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Record, error) {
	// 根据扩展名提前判定是否处理（STDIN 不受限）
	if s.allow != nil && fileID != "stdin" {
		ext := strings.ToLower(path.Ext(string(fileID)))
		if _, ok := s.allow[ext]; !ok {
			return nil, fmt.Errorf("%w: extension %q not allowed", contract.ErrSkip, ext)
		}
	}
	br := bufio.NewReader(r)
	var recs []contract.Record
	var idx contract.Index
	for {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		line, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		rec := contract.Record{Index: idx, FileID: fileID, Text: line}
		if s.maxBytes > 0 && len(line) > s.maxBytes {
			if s.failLong {
				return nil, fmt.Errorf("%w: line %d has %d bytes > %d", contract.ErrLineTooLong, idx+1, len(line), s.maxBytes)
			}
			rec.Text = line[:s.maxBytes]
			rec.Meta = contract.Meta{MetaTooLong: fmt.Sprintf("%d", len(line))}
		}
		recs = append(recs, rec)
		idx++
	}
	return recs, nil
}

// readTrimmedLine 读取一行，归一 CRLF→LF，并去除结尾换行符。
// eof 仅在没有任何剩余内容时为 true；最后一行无换行时照常返回该行。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if s == "" {
			return "", true, nil
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, false, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
