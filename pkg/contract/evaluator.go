package contract

import "context"

// Evaluator: 对一批行逐条求值，返回与 b.Records 一一对应的 Result。
// 约束：
//   - 纯计算，不做 I/O；
//   - 行级失败编码进 Result（Status/Output），不返回 error；
//   - 仅在 ctx 取消或不变量违例时返回 error。
type Evaluator interface {
	Evaluate(ctx context.Context, b Batch) ([]Result, error)
}
