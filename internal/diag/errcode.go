package diag

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"romancalc/pkg/calc"
	"romancalc/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeCancel    Code = "cancel"
	CodeInvariant Code = "invariant"
	CodeIO        Code = "io"
	CodeFormat    Code = "format"
	CodeNumeral   Code = "numeral"
	CodeOperator  Code = "operator"
)

// Classify 将错误归为最小分类；仅依赖哨兵错误与标准库错误类型。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, calc.ErrFormat), errors.Is(err, contract.ErrLineTooLong):
		return CodeFormat
	case errors.Is(err, calc.ErrNumeral):
		return CodeNumeral
	case errors.Is(err, calc.ErrOperator):
		return CodeOperator
	case errors.Is(err, contract.ErrInvariantViolation),
		errors.Is(err, contract.ErrInvalidInput),
		errors.Is(err, contract.ErrSeqInvalid),
		errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
