package roman

// 规范形式的构造表（值从大到小）。
var canonicalTable = []struct {
	value  int64
	symbol string
}{
	{1000, "M"},
	{900, "CM"},
	{500, "D"},
	{400, "CD"},
	{100, "C"},
	{90, "XC"},
	{50, "L"},
	{40, "XL"},
	{10, "X"},
	{9, "IX"},
	{5, "V"},
	{4, "IV"},
	{1, "I"},
}

// Format 将正整数格式化为规范罗马数字；n<=0 返回空串。
// 超过 3999 时以重复 "M" 延伸。
func Format(n int64) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, 0, 16)
	for _, e := range canonicalTable {
		for n >= e.value {
			buf = append(buf, e.symbol...)
			n -= e.value
		}
	}
	return string(buf)
}

// Canonical 判断 token 是否为规范写法：字符合法、非空，且按 Decode 求值后
// 重新格式化能得到同一字符串。仅用于严格模式，不影响 Decode 的宽松语义。
func Canonical(token string) bool {
	if token == "" || !Valid(token) {
		return false
	}
	v := Decode(token)
	if v <= 0 {
		return false
	}
	return Format(v) == token
}
