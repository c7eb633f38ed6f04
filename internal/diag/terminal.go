package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认 stderr）。
// - TTY: 单行 \r 覆盖并着色；非 TTY: 关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	evaluator   string
	filesDone   int
	runStart    time.Time

	curFileID    string
	batchesTotal int
	batchesDone  int
	lineErrs     int

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

var (
	styleOK   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	styleFail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器；enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return t
}

// RunStart: 记录运行上下文（并发、求值器）。
func (t *Terminal) RunStart(concurrency int, evaluator string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.concurrency = concurrency
	t.evaluator = evaluator
	t.filesDone = 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 并发=%d | evaluator=%s", concurrency, safe(evaluator)))
}

// FileStart: 标记当前文件与计划批次。
func (t *Terminal) FileStart(fileID string, batchesTotal int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curFileID = shortenBase(fileID, 48)
	t.batchesTotal = batchesTotal
	t.batchesDone = 0
	t.lineErrs = 0
	if !t.isTTY {
		t.println(fmt.Sprintf("[file] %s | 计划批次=%d", t.curFileID, batchesTotal))
	}
}

// FileProgress: 周期性进度（≥100ms 节流，仅 TTY）。errs 为累计行级错误数。
func (t *Terminal) FileProgress(done, total, errs int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.batchesDone = done
	t.batchesTotal = total
	t.lineErrs = errs
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	line := fmt.Sprintf("[file] %s | 进度 %d/%d | 行错误 %d | 并发 %d | 用时 %s",
		t.curFileID, t.batchesDone, t.batchesTotal, t.lineErrs, t.concurrency, formatSince(t.runStart))
	t.printInline(line)
}

// FileFinish: 完成当前文件（立即刷新并换行；FilesDone++）。
func (t *Terminal) FileFinish(ok bool, lines, lineErrs int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.filesDone++
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	tag := t.tag(ok, "done")
	t.println(fmt.Sprintf("%s %s | 行 %d | 行错误 %d | 总用时 %s",
		tag, t.curFileID, lines, lineErrs, formatDur(dur)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.println(fmt.Sprintf("%s 全部完成 | 文件 %d | 总用时 %s", t.tag(ok, "ok"), t.filesDone, formatDur(dur)))
}

// tag 生成 [ok]/[done]/[fail] 标签；TTY 下着色。
func (t *Terminal) tag(ok bool, okWord string) string {
	word, style := okWord, styleOK
	if !ok {
		word, style = "fail", styleFail
	}
	s := "[" + word + "]"
	if t.isTTY {
		return style.Render(s)
	}
	return s
}

func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

// printInline: \r + 内容；新行比旧行短时以空格覆盖残留。
func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	if s != "" {
		b.WriteString(styleDim.Render(s))
	}
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return base
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	if len(rs) <= cut {
		return string(rs)
	}
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return lipgloss.Width(s) }

// safe 去除换行等控制字符，避免污染终端。
func safe(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
