// Package words 将有符号整数拼写为英文单词（首字母大写、单空格分隔）。
package words

import "strings"

// 只读词表。
var (
	belowTwenty = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten",
		"Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
	// scales: 组号 0..3；更高组号没有量级词（已知上限，见 Scale）。
	scales = []string{"", "Thousand", "Million", "Billion"}
)

const (
	// Zero: 0 的固定拼写。
	Zero = "Zero"
	// Negative: 负数前缀词。
	Negative = "Negative"
)

// Scale 返回第 idx 组（以 1000 为基，最低组为 0）的量级词。
// 超出 Billion 的组返回空串：渲染结果只保留组内数字，不扩展量级表。
func Scale(idx int) string {
	if idx < 0 || idx >= len(scales) {
		return ""
	}
	return scales[idx]
}

// Render 将 n 拼写为英文：
//   - 0 → "Zero"；
//   - 负数 → "Negative " + |n| 的拼写；
//   - 以 1000 为基分组，高位组在前，每个非零组后跟其量级词。
func Render(n int64) string {
	if n == 0 {
		return Zero
	}
	var out []string
	mag := uint64(n)
	if n < 0 {
		out = append(out, Negative)
		// 按补码取绝对值，覆盖 math.MinInt64。
		mag = uint64(-(n + 1)) + 1
	}
	return strings.Join(append(out, Magnitude(mag)...), " ")
}

// Magnitude 返回非负数值的单词序列（高位组在前）；0 返回 nil。
func Magnitude(mag uint64) []string {
	var groups [][]string
	for idx := 0; mag > 0; idx++ {
		chunk := int(mag % 1000)
		mag /= 1000
		if chunk == 0 {
			continue
		}
		ws := Chunk(chunk)
		if s := Scale(idx); s != "" {
			ws = append(ws, s)
		}
		groups = append(groups, ws)
	}
	var out []string
	for i := len(groups) - 1; i >= 0; i-- {
		out = append(out, groups[i]...)
	}
	return out
}

// Chunk 拼写 1..999 的三位组；0 或越界返回 nil。
func Chunk(chunk int) []string {
	if chunk <= 0 || chunk > 999 {
		return nil
	}
	var out []string
	if h := chunk / 100; h > 0 {
		out = append(out, belowTwenty[h], "Hundred")
	}
	rem := chunk % 100
	switch {
	case rem == 0:
	case rem < 20:
		out = append(out, belowTwenty[rem])
	default:
		out = append(out, tens[rem/10])
		if u := rem % 10; u > 0 {
			out = append(out, belowTwenty[u])
		}
	}
	return out
}
