package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level 日志级别。
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func (l Level) zap() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// DefaultLogDir 默认日志目录（相对当前工作目录）。
const DefaultLogDir = "logs"

// Logger 为结构化日志器：单行 JSON，写入轮转文件；
// 每条事件固定携带 corr_id/comp/stage。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 以默认目录 logs/、10MiB 轮转初始化。
func NewLogger(corrID, level string) *Logger {
	return NewLoggerAt(DefaultLogDir, corrID, level)
}

// NewLoggerAt 将日志写入 dir 下的轮转文件；写失败时回退到 stderr。
func NewLoggerAt(dir, corrID, level string) *Logger {
	sink := NewRotatingFile(dir, 10*1024*1024)
	l := NewLoggerTo(&fallbackWriter{primary: sink, fallback: os.Stderr}, corrID, level)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 io.Writer（测试与嵌入调用）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	lvl := zap.NewAtomicLevelAt(parseLevel(strings.TrimSpace(level)).zap())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	z := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr))).With(zap.String("corr_id", corrID))
	return &Logger{z: z}
}

// NewNop 返回丢弃所有事件的日志器。
func NewNop() *Logger { return &Logger{z: zap.NewNop()} }

func utcRFC3339(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Zap 暴露底层 zap.Logger，供需要自定义字段的调用方使用。
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Close 刷新并关闭日志文件。
func (l *Logger) Close() error {
	if l == nil || l.z == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

func eventFields(comp, stage, fileID, batch string, kv map[string]string) []zap.Field {
	fs := make([]zap.Field, 0, 5)
	fs = append(fs, zap.String("comp", comp), zap.String("stage", stage))
	if fileID != "" {
		fs = append(fs, zap.String("file_id", fileID))
	}
	if batch != "" {
		fs = append(fs, zap.String("batch_id", batch))
	}
	if len(kv) > 0 {
		fs = append(fs, zap.Any("kv", kv))
	}
	return fs
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWithKV(comp, msg, "", "", nil)
}

// StartWith 记录带 file_id/batch_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID, batch string) *Timer {
	return l.StartWithKV(comp, msg, fileID, batch, nil)
}

// StartWithKV 记录带 file_id/batch_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID, batch string, kv map[string]string) *Timer {
	l.Zap().Info(msg, eventFields(comp, "start", fileID, batch, kv)...)
	return &Timer{l: l, comp: comp, fileID: fileID, batch: batch, t0: time.Now()}
}

// DebugStart 输出调试级别的 start 事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID, batch string, kv map[string]string) {
	l.Zap().Debug(msg, eventFields(comp, "start", fileID, batch, kv)...)
}

// Warn 记录 warn 事件（例如行级错误汇总）。
func (l *Logger) Warn(comp, msg, fileID string, kv map[string]string) {
	l.Zap().Warn(msg, eventFields(comp, "warn", fileID, "", kv)...)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", "", nil)
}

// ErrorWith 支持 file_id/batch_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID, batch string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, batch, nil)
}

// ErrorWithKV 支持附带键值对。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID, batch string, kv map[string]string) {
	fs := eventFields(comp, "error", fileID, batch, kv)
	fs = append(fs, zap.String("code", code))
	if durSince != nil {
		fs = append(fs, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	l.Zap().Error(msg, fs...)
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	fs := eventFields(comp, "finish", "", "", nil)
	fs = append(fs, zap.Int64("dur_ms", time.Since(start).Milliseconds()), zap.Int64("count", count))
	l.Zap().Info(msg, fs...)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	batch  string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	fs := eventFields(t.comp, "finish", t.fileID, t.batch, nil)
	fs = append(fs, zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()), zap.Int64("count", count))
	t.l.Zap().Info(msg, fs...)
}

// Elapsed 返回自 start 以来的耗时。
func (t *Timer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}

// fallbackWriter 先写 primary；失败时提示并将同一行写到 fallback。
type fallbackWriter struct {
	primary  io.Writer
	fallback io.Writer
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	n, err := w.primary.Write(p)
	if err == nil {
		return n, nil
	}
	fmt.Fprintf(w.fallback, "logger sink error: %v\n", err)
	return w.fallback.Write(p)
}

// Metrics 以 info 级别记录一次指标快照（stage=metrics）。
func (l *Logger) Metrics(comp string, m Metrics) {
	l.Zap().Info("metrics",
		zap.String("comp", comp), zap.String("stage", "metrics"),
		zap.Any("op_total", m.Ops), zap.Any("error_total", m.Errors),
		zap.Any("op_duration_ms", m.DurationMS), zap.Any("line_total", m.Lines))
}
