// Package calc 编排单行求值：解析 → 校验 → 解码 → 运算 → 英文拼写。
// 纯函数、无状态；每行独立求值。
package calc

import (
	"strings"
	"unicode/utf8"

	"romancalc/pkg/roman"
	"romancalc/pkg/words"
)

// Outcome: 单行求值成功的结果。
type Outcome struct {
	Left  int64
	Op    byte
	Right int64
	Value int64
	Words string
}

// Option 调整 EvalLine 的行为。
type Option func(*settings)

type settings struct {
	strictOps      bool
	strictNumerals bool
}

// StrictOperators: 未知运算符返回 *OperatorError，而非静默得到 0。
func StrictOperators(on bool) Option { return func(s *settings) { s.strictOps = on } }

// StrictNumerals: 拒绝非规范罗马数字（如 "IIII"、"IC"）。
func StrictNumerals(on bool) Option { return func(s *settings) { s.strictNumerals = on } }

// EvalLine 对一行文本求值。行必须恰好包含三个空白分隔字段：
// 罗马数字、单字符运算符、罗马数字。行级错误为 *FormatError / *NumeralError /
// *OperatorError，调用方用 Message 转为输出文本后继续下一行。
func EvalLine(line string, opts ...Option) (Outcome, error) {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	fields := strings.FieldsFunc(line, isSpace)
	if len(fields) != 3 {
		return Outcome{}, &FormatError{Line: line, Fields: len(fields), Reason: "want numeral, operator, numeral"}
	}
	lhs, opTok, rhs := fields[0], fields[1], fields[2]
	if len(opTok) != 1 {
		reason := "operator must be a single character"
		if utf8.RuneCountInString(opTok) == 1 {
			reason = "operator must be ASCII"
		}
		return Outcome{}, &FormatError{Line: line, Fields: 3, Reason: reason}
	}
	for _, tok := range []string{lhs, rhs} {
		if !roman.Valid(tok) {
			return Outcome{}, &NumeralError{Token: tok}
		}
		if s.strictNumerals && !roman.Canonical(tok) {
			return Outcome{}, &NumeralError{Token: tok, Canonical: true}
		}
	}
	op := opTok[0]
	if s.strictOps && !Supported(op) {
		return Outcome{}, &OperatorError{Op: op}
	}
	out := Outcome{Left: roman.Decode(lhs), Op: op, Right: roman.Decode(rhs)}
	out.Value = Apply(out.Left, op, out.Right)
	out.Words = words.Render(out.Value)
	return out, nil
}

// Line 返回一行的输出文本：成功为英文拼写，行级错误为固定消息。
// 第二个返回值为行状态（见 Status）。
func Line(line string, opts ...Option) (string, string) {
	out, err := EvalLine(line, opts...)
	if err != nil {
		return Message(err), Status(err)
	}
	return out.Words, StatusOK
}

// isSpace 仅把 ASCII 空白（空格、\t、\n、\v、\f、\r）视为字段分隔；
// U+00A0 等 Unicode 空白属于字段内容。
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
