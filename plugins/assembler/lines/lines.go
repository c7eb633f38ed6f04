package lines

import (
	"context"
	"io"
	"strings"

	"romancalc/pkg/contract"
)

// Options: 预留占位，按行装配无需配置。
type Options struct{}

type assembler struct{}

// New 创建按行装配器。
func New() contract.Assembler { return &assembler{} }

// Assemble 按 Index 严格升序且连续拼接 Output，每条结果后追加 "\n"；
// 发现 FileID 混入、逆序或缺口即返回 ErrSeqInvalid。
// 可对同一文件的连续批多次调用，跨批连续性由编排层保证。
func (a *assembler) Assemble(ctx context.Context, fileID contract.FileID, results []contract.Result) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(results) == 0 {
		return strings.NewReader(""), nil
	}
	first := results[0].Index
	for i, r := range results {
		if r.FileID != fileID || r.Index != first+contract.Index(i) {
			return nil, contract.ErrSeqInvalid
		}
	}

	rs := make([]io.Reader, 0, 2*len(results))
	for _, r := range results {
		// 允许空 Output；每行独立以 "\n" 结尾
		rs = append(rs, strings.NewReader(r.Output), strings.NewReader("\n"))
	}
	return io.MultiReader(rs...), nil
}

var _ contract.Assembler = (*assembler)(nil)
