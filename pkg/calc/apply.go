package calc

// 支持的运算符。
const (
	OpAdd byte = '+'
	OpSub byte = '-'
	OpMul byte = '*'
)

// Supported 报告 op 是否为已知运算符。
func Supported(op byte) bool {
	switch op {
	case OpAdd, OpSub, OpMul:
		return true
	default:
		return false
	}
}

// Apply 对两个整数执行 op：'+' 求和，'-' 左减右，'*' 求积。
// 未知运算符返回 0 且不报错；需要显式错误时由 EvalLine 的 StrictOperators 选项处理。
func Apply(left int64, op byte, right int64) int64 {
	switch op {
	case OpAdd:
		return left + right
	case OpSub:
		return left - right
	case OpMul:
		return left * right
	default:
		return 0
	}
}
