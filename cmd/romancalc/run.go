package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "romancalc/internal/config"
	"romancalc/internal/diag"
	"romancalc/internal/pipeline"
	"romancalc/pkg/contract"
	rfs "romancalc/plugins/reader/filesystem"
	wstd "romancalc/plugins/writer/stdout"
)

var pipelineRun = pipeline.RunWithStats

// 源或目标无法打开时的固定提示。
const msgOpenFailed = "Error: Couldn't open input/output files."

// 缺省配置文件（按顺序探测）。
var defaultConfigFiles = []string{"config.json", "config.yaml", "config.yml"}

// loadConfig 按优先级合并：Defaults → 文件/ROMANCALC_CONFIG_JSON → ENV → CLI。
func (a *app) loadConfig(cmd *cobra.Command, roots []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := a.flags.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, p := range defaultConfigFiles {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	var (
		base   cfgpkg.Config
		err    error
		loaded bool
	)
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err = cfgpkg.LoadJSON("", []byte(s))
		loaded = true
	} else if path != "" {
		base, err = cfgpkg.LoadFile(path)
		loaded = true
	}
	if err != nil {
		return cfg, fmt.Errorf("配置解析失败: %w", err)
	}
	if loaded {
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	return a.applyFlags(cmd, cfg, roots)
}

// applyFlags 应用 CLI 覆盖（仅显式给出的旗标）。
func (a *app) applyFlags(cmd *cobra.Command, cfg cfgpkg.Config, roots []string) (cfgpkg.Config, error) {
	fl := cmd.Flags()
	var over cfgpkg.Config
	if len(roots) > 0 {
		over.Inputs = roots
	}
	if fl.Changed("concurrency") {
		if a.flags.concurrency < 1 {
			return cfg, errors.New("--concurrency must be >= 1")
		}
		over.Concurrency = a.flags.concurrency
	}
	if fl.Changed("log-level") {
		over.Logging.Level = a.flags.logLevel
	}
	if fl.Changed("sidecar") {
		v := a.flags.sidecar
		over.Sidecar = &v
	}
	cfg = cfgpkg.Merge(cfg, over)

	// 切换 Writer 时丢弃原 Writer 的 Options（各实现的键不通用）
	if fl.Changed("writer") {
		name := strings.TrimSpace(a.flags.writer)
		if name != cfgpkg.EffectiveComponents(cfg).Writer {
			cfg.Options.Writer = nil
		}
		cfg.Components.Writer = name
	}
	var err error
	if fl.Changed("output-dir") {
		if cfgpkg.EffectiveComponents(cfg).Writer != "fs" {
			return cfg, errors.New("--output-dir requires writer fs")
		}
		// 指定目录时按源文件名写出，不再使用固定文件名
		w := cfgpkg.WriterOptions(cfg)
		if w, err = setOption(w, "output_dir", a.flags.outputDir); err != nil {
			return cfg, err
		}
		if w, err = setOption(w, "output_name", nil); err != nil {
			return cfg, err
		}
		cfg.Options.Writer = w
	}
	if fl.Changed("strict-operators") {
		if cfg.Options.Evaluator, err = setOption(cfg.Options.Evaluator, "strict_operators", a.flags.strictOperators); err != nil {
			return cfg, err
		}
	}
	if fl.Changed("strict-numerals") {
		if cfg.Options.Evaluator, err = setOption(cfg.Options.Evaluator, "strict_numerals", a.flags.strictNumerals); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// setOption 在 Options JSON 对象上设置（val 为 nil 时删除）单个键。
func setOption(raw json.RawMessage, key string, val any) (json.RawMessage, error) {
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("options: %w", err)
		}
	}
	if val == nil {
		delete(m, key)
	} else {
		m[key] = val
	}
	return json.Marshal(m)
}

// prepared 为一次运行装配好的组件与设置。
type prepared struct {
	cfg    cfgpkg.Config
	comp   pipeline.Components
	set    pipeline.Settings
	logger *diag.Logger
}

// close 释放 Writer（sqlite）与日志文件。
func (p *prepared) close() {
	if c, ok := p.comp.Writer.(io.Closer); ok {
		_ = c.Close()
	}
	_ = p.logger.Close()
}

// prepare 完成配置加载、校验与装配；失败统一为配置错误（退出码 3）。
func (a *app) prepare(cmd *cobra.Command, roots []string) (*prepared, error) {
	cfg, err := a.loadConfig(cmd, roots)
	if err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		a.dumpConfig(cfg)
		return nil, configErr("配置校验失败: %w", err)
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return nil, configErr("装配失败: %w", err)
	}
	if r, ok := comp.Reader.(*rfs.FileSystem); ok {
		r.WithStdin(a.stdin)
	}
	if w, ok := comp.Writer.(*wstd.Stdout); ok {
		w.WithOutput(a.stdout)
	}
	dir := cfg.Logging.Dir
	if dir == "" {
		dir = diag.DefaultLogDir
	}
	logger := diag.NewLoggerAt(dir, uuid.NewString(), cfg.Logging.Level)
	eff := cfgpkg.EffectiveComponents(cfg)
	logger.DebugStart("config", "effective", "", "", map[string]string{
		"inputs_count": strconv.Itoa(len(cfg.Inputs)),
		"concurrency":  strconv.Itoa(cfg.Concurrency),
		"max_lines":    strconv.Itoa(cfg.MaxLines),
		"sidecar":      strconv.FormatBool(set.Sidecar),
		"reader":       eff.Reader,
		"splitter":     eff.Splitter,
		"batcher":      eff.Batcher,
		"evaluator":    eff.Evaluator,
		"assembler":    eff.Assembler,
		"writer":       eff.Writer,
	})
	return &prepared{cfg: cfg, comp: comp, set: set, logger: logger}, nil
}

// runPipeline: run 命令（以及无子命令时）的实现。
func (a *app) runPipeline(cmd *cobra.Command, roots []string) error {
	start := time.Now()
	p, err := a.prepare(cmd, roots)
	if err != nil {
		return err
	}
	defer p.close()

	term := diag.NewTerminal(a.stderr, a.flags.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(p.cfg.Concurrency, cfgpkg.EffectiveComponents(p.cfg).Evaluator)

	t := p.logger.Start("pipeline", "run")
	stats, err := pipelineRun(cmd.Context(), p.comp, p.set, p.logger)
	if err != nil {
		code := string(diag.Classify(err))
		p.logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		p.logger.Metrics("pipeline", diag.Snapshot())
		term.RunFinish(false, time.Since(start))
		if errors.Is(err, context.Canceled) {
			return &exitError{code: exitRuntime}
		}
		var pe *fs.PathError
		if errors.As(err, &pe) {
			fmt.Fprintln(a.stderr, msgOpenFailed)
		}
		return &exitError{code: exitRuntime, err: fmt.Errorf("运行失败: %w", err)}
	}
	t.Finish("run", stats.Lines)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	p.logger.Metrics("pipeline", diag.Snapshot())
	term.RunFinish(true, time.Since(start))
	if n := stats.LineErrorTotal(); n > 0 {
		p.logger.Warn("pipeline", "line errors", "", map[string]string{
			"lines":  strconv.FormatInt(stats.Lines, 10),
			"errors": strconv.FormatInt(n, 10),
		})
	}
	fmt.Fprintf(a.stderr, "Processing complete. Results are in %s.\n", location(p.comp.Writer))
	return nil
}

// location 返回 Writer 的输出落点描述。
func location(w contract.Writer) string {
	if l, ok := w.(contract.Locator); ok {
		return l.Location()
	}
	return "the configured writer"
}

func (a *app) dumpConfig(c cfgpkg.Config) {
	b, err := cfgpkg.Encode(c, "json")
	if err != nil {
		return
	}
	fmt.Fprintf(a.stderr, "有效配置:\n%s", b)
}
