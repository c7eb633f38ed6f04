package contract

import "errors"

// 最小错误分类（用于日志分类与上层策略判定）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 组件收到非法参数（如空批、上限为零）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrSeqInvalid: 行序列不连续、逆序或混入其他文件。
	ErrSeqInvalid = errors.New("sequence invalid")
	// ErrLineTooLong: 单行超过拆分器允许的最大字节数。
	ErrLineTooLong = errors.New("line too long")
	// ErrSkip: 组件声明该文件不在处理范围内（例如扩展名不匹配）；编排层跳过且不写出。
	ErrSkip = errors.New("skip file")
)
