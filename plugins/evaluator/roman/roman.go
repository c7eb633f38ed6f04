package roman

import (
	"context"
	"strconv"

	"romancalc/pkg/calc"
	"romancalc/pkg/contract"
)

// 写入 Result.Meta 的键。
const (
	MetaStatus = "status"
	MetaValue  = "value"
)

// metaTooLong 与 lines 拆分器的截断标记保持一致。
const metaTooLong = "too_long"

// Options 为罗马数字求值器的可选配置。
type Options struct {
	// StrictOperators: 未知运算符输出 "Invalid operator in input."，而非 "Zero"。
	StrictOperators bool `json:"strict_operators"`
	// StrictNumerals: 拒绝非规范写法（如 "IIII"、"IC"）。
	StrictNumerals bool `json:"strict_numerals"`
}

// Evaluator 逐行调用 calc.EvalLine，行级错误编码进 Result。
type Evaluator struct {
	opts []calc.Option
}

// New 创建求值器。
func New(opts *Options) *Evaluator {
	e := &Evaluator{}
	if opts != nil {
		e.opts = append(e.opts, calc.StrictOperators(opts.StrictOperators), calc.StrictNumerals(opts.StrictNumerals))
	}
	return e
}

var _ contract.Evaluator = (*Evaluator)(nil)

// Evaluate 对批内每行求值，返回与 b.Records 一一对应的结果。
// 空批返回 ErrInvalidInput；仅在 ctx 取消时中途返回错误。
func (e *Evaluator) Evaluate(ctx context.Context, b contract.Batch) ([]contract.Result, error) {
	if len(b.Records) == 0 {
		return nil, contract.ErrInvalidInput
	}
	out := make([]contract.Result, 0, len(b.Records))
	for i, rec := range b.Records {
		// 每 64 行检查一次取消
		if i&63 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, e.evalRecord(b.FileID, rec))
	}
	return out, nil
}

func (e *Evaluator) evalRecord(fid contract.FileID, rec contract.Record) contract.Result {
	res := contract.Result{FileID: fid, Index: rec.Index, Src: rec.Text}
	if _, truncated := rec.Meta[metaTooLong]; truncated {
		res.Output = calc.MsgFormat
		res.Status = calc.StatusFormat
		res.Meta = contract.Meta{MetaStatus: res.Status}
		return res
	}
	o, err := calc.EvalLine(rec.Text, e.opts...)
	if err != nil {
		res.Output = calc.Message(err)
		res.Status = calc.Status(err)
		res.Meta = contract.Meta{MetaStatus: res.Status}
		return res
	}
	res.Output = o.Words
	res.Status = calc.StatusOK
	res.Meta = contract.Meta{
		MetaStatus: res.Status,
		MetaValue:  strconv.FormatInt(o.Value, 10),
	}
	return res
}
