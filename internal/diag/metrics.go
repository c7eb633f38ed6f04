package diag

import (
	"strings"
	"sync"
)

// 进程内指标（计数器 + 累计耗时）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}
// - line_total{status}
var reg = newRegistry()

type registry struct {
	mu       sync.Mutex
	ops      map[string]int64
	errs     map[string]int64
	duration map[string]int64
	lines    map[string]int64
}

func newRegistry() *registry {
	return &registry{
		ops:      map[string]int64{},
		errs:     map[string]int64{},
		duration: map[string]int64{},
		lines:    map[string]int64{},
	}
}

func key(parts ...string) string { return strings.Join(parts, "/") }

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	reg.mu.Lock()
	reg.ops[key(comp, stage, result)]++
	reg.mu.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	reg.mu.Lock()
	reg.errs[key(comp, code)]++
	reg.mu.Unlock()
}

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	reg.mu.Lock()
	reg.duration[key(comp, stage)] += durMS
	reg.mu.Unlock()
}

// IncLines 按行状态累加行数。
func IncLines(status string, n int64) {
	if n == 0 {
		return
	}
	reg.mu.Lock()
	reg.lines[status] += n
	reg.mu.Unlock()
}

// Metrics 为某一时刻的指标快照；键以 "/" 连接标签。
type Metrics struct {
	Ops        map[string]int64 `json:"op_total"`
	Errors     map[string]int64 `json:"error_total"`
	DurationMS map[string]int64 `json:"op_duration_ms"`
	Lines      map[string]int64 `json:"line_total"`
}

// Snapshot 返回当前指标的拷贝。
func Snapshot() Metrics {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return Metrics{
		Ops:        copyMap(reg.ops),
		Errors:     copyMap(reg.errs),
		DurationMS: copyMap(reg.duration),
		Lines:      copyMap(reg.lines),
	}
}

// ResetMetrics 清空所有指标。
func ResetMetrics() {
	fresh := newRegistry()
	reg.mu.Lock()
	reg.ops, reg.errs, reg.duration, reg.lines = fresh.ops, fresh.errs, fresh.duration, fresh.lines
	reg.mu.Unlock()
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
