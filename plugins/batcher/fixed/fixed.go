package fixed

import (
	"context"
	"errors"
	"fmt"

	"romancalc/pkg/contract"
)

// Options 为定长 Batcher 的可选配置（最小必要）。
// 运行期上限由 BatchLimit 传入；此处值仅在 BatchLimit 对应维度为 0 时生效。
type Options struct {
	// MaxLines: 每批默认最多行数。<=0 采用默认 256。
	MaxLines int `json:"max_lines"`
	// MaxBytes: 每批默认累计字节上限。<=0 表示不限制。
	MaxBytes int `json:"max_bytes"`
}

// Batcher 将连续行切为首尾相接的定长批。
type Batcher struct {
	maxLines int
	maxBytes int
}

const defaultMaxLines = 256

// New 创建定长 Batcher。
func New(opts *Options) *Batcher {
	b := &Batcher{maxLines: defaultMaxLines}
	if opts != nil {
		if opts.MaxLines > 0 {
			b.maxLines = opts.MaxLines
		}
		if opts.MaxBytes > 0 {
			b.maxBytes = opts.MaxBytes
		}
	}
	return b
}

var _ contract.Batcher = (*Batcher)(nil)

// Make 按行数与字节上限切批：
// - 同一 FileID 内按 Index 连续切片，不重排、不重叠；
// - 单行超过字节上限时独占一批（不报错，行级处理由求值阶段负责）；
// - BatchIndex 自 0 递增。
func (b *Batcher) Make(ctx context.Context, records []contract.Record, limit contract.BatchLimit) ([]contract.Batch, error) {
	maxLines := limit.MaxLines
	if maxLines <= 0 {
		maxLines = b.maxLines
	}
	maxBytes := limit.MaxBytes
	if maxBytes <= 0 {
		maxBytes = b.maxBytes
	}
	if maxLines <= 0 && maxBytes <= 0 {
		return nil, fmt.Errorf("%w: batcher needs a line or byte limit", contract.ErrInvalidInput)
	}
	n := len(records)
	if n == 0 {
		return nil, nil
	}
	// 校验 FileID 一致与 Index 连续（0..n-1）。
	fid := records[0].FileID
	if records[0].Index != 0 {
		return nil, fmt.Errorf("%w: first index must be 0, got %d", contract.ErrSeqInvalid, records[0].Index)
	}
	for i := 1; i < n; i++ {
		if records[i].FileID != fid {
			return nil, fmt.Errorf("%w: records must have the same FileID", contract.ErrSeqInvalid)
		}
		if records[i].Index != records[i-1].Index+1 {
			return nil, fmt.Errorf("%w: record Index must be contiguous and strictly increasing", contract.ErrSeqInvalid)
		}
	}

	var batches []contract.Batch
	var batchIdx int64
	start := 0
	size := 0
	flush := func(end int) {
		batches = append(batches, contract.Batch{
			FileID:     fid,
			BatchIndex: batchIdx,
			Records:    records[start:end],
		})
		batchIdx++
		start = end
		size = 0
	}
	for i := 0; i < n; i++ {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		l := len(records[i].Text)
		full := maxLines > 0 && i-start >= maxLines
		over := maxBytes > 0 && i > start && size+l > maxBytes
		if full || over {
			flush(i)
		}
		size += l
	}
	flush(n)
	if start != n {
		return nil, errors.New("batcher: records not fully covered")
	}
	return batches, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
