// Package roman 提供罗马数字的字符集校验与数值解码。
//
// 解码采用逐字符“前瞻一位”的减法规则，不做语法层面的规范性校验：
// "IIII"、"IC"、"VV" 等非规范写法均按局部规则算术求值。
package roman

// Alphabet: 合法罗马数字字符（区分大小写，仅大写）。
const Alphabet = "IVXLCDM"

// Value 返回单个罗马数字字符的数值；非字母表字符返回 0。
func Value(c byte) int64 {
	switch c {
	case 'I':
		return 1
	case 'V':
		return 5
	case 'X':
		return 10
	case 'L':
		return 50
	case 'C':
		return 100
	case 'D':
		return 500
	case 'M':
		return 1000
	default:
		return 0
	}
}

// Valid 判断 token 是否仅由 {I,V,X,L,C,D,M} 组成。
// 空串视为合法（不存在违规字符）。
func Valid(token string) bool {
	for i := 0; i < len(token); i++ {
		if Value(token[i]) == 0 {
			return false
		}
	}
	return true
}

// Decode 将 token 按局部减法规则解码为有符号整数：
// 若当前字符值小于下一字符值（末尾之后视为 0）则减去，否则加上。
// 调用方应先经 Valid 校验；非法字符按 0 计。
func Decode(token string) int64 {
	var total int64
	for i := 0; i < len(token); i++ {
		cur := Value(token[i])
		var next int64
		if i+1 < len(token) {
			next = Value(token[i+1])
		}
		if cur < next {
			total -= cur
		} else {
			total += cur
		}
	}
	return total
}
