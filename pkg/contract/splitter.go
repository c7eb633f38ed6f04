package contract

import (
	"context"
	"io"
)

// Splitter: 将单文件字节流拆分为有序 Record 序列（每行一条），并分配 Index（0..n-1）。
// 约束：
// 1) 不跨文件合并；
// 2) Index 严格递增且稳定；
// 3) 仅做 CRLF→LF 的最小必要归一，末尾换行不产生额外空行；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) ([]Record, error)
}
