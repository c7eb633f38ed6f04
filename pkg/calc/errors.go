package calc

import (
	"errors"
	"fmt"
)

// 逐行输出的固定错误消息。
const (
	MsgFormat   = "Invalid input format."
	MsgNumeral  = "Invalid Roman numeral in input."
	MsgOperator = "Invalid operator in input."
)

// 行级错误哨兵，供 errors.Is 分类。
var (
	ErrFormat   = errors.New("line format invalid")
	ErrNumeral  = errors.New("roman numeral invalid")
	ErrOperator = errors.New("operator unsupported")
)

// FormatError: 行无法解析为“数字 运算符 数字”三段。
type FormatError struct {
	Line   string
	Fields int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format: %s (fields=%d)", e.Reason, e.Fields)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// NumeralError: 至少一个操作数包含非罗马数字字符（或严格模式下非规范）。
type NumeralError struct {
	Token string
	// Canonical: true 表示字符合法但不满足严格模式的规范写法。
	Canonical bool
}

func (e *NumeralError) Error() string {
	if e.Canonical {
		return fmt.Sprintf("numeral: %q is not canonical", e.Token)
	}
	return fmt.Sprintf("numeral: %q contains characters outside %s", e.Token, "IVXLCDM")
}

func (e *NumeralError) Is(target error) bool { return target == ErrNumeral }

// OperatorError: 严格模式下的未知运算符。
type OperatorError struct {
	Op byte
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator: %q unsupported", e.Op)
}

func (e *OperatorError) Is(target error) bool { return target == ErrOperator }

// Message 将行级错误映射为输出行文本；非行级错误返回空串。
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return MsgFormat
	case errors.Is(err, ErrNumeral):
		return MsgNumeral
	case errors.Is(err, ErrOperator):
		return MsgOperator
	default:
		return ""
	}
}

// Status 返回行级错误的短分类名（ok|format|numeral|operator），用于边车与统计。
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrFormat):
		return StatusFormat
	case errors.Is(err, ErrNumeral):
		return StatusNumeral
	case errors.Is(err, ErrOperator):
		return StatusOperator
	default:
		return "error"
	}
}

// 行状态名。
const (
	StatusOK       = "ok"
	StatusFormat   = "format"
	StatusNumeral  = "numeral"
	StatusOperator = "operator"
)
