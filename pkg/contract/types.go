package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内稳定递增的行号索引（0..n-1）。
type Index int64

// Meta: 可选的轻量元信息；核心流程不读取其键值。
type Meta map[string]string

// Record: 单行输入（不可跨文件）。
// 约束：
// - FileID 一致；
// - Index 自 0 严格递增，与源文件行序一致；
// - Text 为去除行尾换行（含 CRLF）后的原文，不做其他清洗。
type Record struct {
	Index  Index
	FileID FileID
	Text   string
	Meta   Meta // 可为 nil
}

// Batch: 同源文件内连续的一段行。Records 按 Index 严格升序且连续；
// BatchIndex 为同一 FileID 内的批序（0..n-1），用于并发求值后的顺序恢复。
type Batch struct {
	FileID     FileID
	BatchIndex int64
	Records    []Record
}

// First/Last 返回批内首末行号；空批返回 (0,-1)。
func (b Batch) First() Index {
	if len(b.Records) == 0 {
		return 0
	}
	return b.Records[0].Index
}

func (b Batch) Last() Index {
	if len(b.Records) == 0 {
		return -1
	}
	return b.Records[len(b.Records)-1].Index
}

// Result: 单行求值结果（统一结果 IR）。
// Output 为写出到目标的一行文本（不含换行）；Status 为行状态
// （ok|format|numeral|operator），行级错误不会中断运行。
type Result struct {
	FileID FileID
	Index  Index
	Src    string
	Output string
	Status string
	Meta   Meta
}
