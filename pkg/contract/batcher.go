package contract

import "context"

// BatchLimit: 单批上限。零值表示该维度不限制，但至少一个维度需为正。
type BatchLimit struct {
	// MaxLines: 每批最多行数。
	MaxLines int
	// MaxBytes: 每批行文本累计字节上限（单行超限时独占一批）。
	MaxBytes int
}

// Batcher: 将同一 FileID 的有序 Record 切分为若干连续 Batch。
// 约束：
//  1. 仅在同一 FileID 内成批；
//  2. 不重排、不丢失、不重叠，批首尾相接覆盖全部 Record；
//  3. 每个 Batch 赋予单调递增的 BatchIndex（0..n-1）。
type Batcher interface {
	Make(ctx context.Context, records []Record, limit BatchLimit) ([]Batch, error)
}
