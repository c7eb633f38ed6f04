package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"romancalc/internal/pipeline"
	"romancalc/pkg/contract"
	"romancalc/pkg/registry"
)

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if cfg.MaxLines < 0 {
		return errors.New("config: max_lines must be >= 0")
	}
	if cfg.MaxBytes < 0 {
		return errors.New("config: max_bytes must be >= 0")
	}
	if !logLevels[strings.ToLower(strings.TrimSpace(cfg.Logging.Level))] {
		return fmt.Errorf("config: logging.level %q (want debug|info|warn|error)", cfg.Logging.Level)
	}
	d := Defaults().Components
	checks := []struct {
		kind  string
		name  string
		names []string
	}{
		{"reader", effName(cfg.Components.Reader, d.Reader), registry.Names(registry.Reader)},
		{"splitter", effName(cfg.Components.Splitter, d.Splitter), registry.Names(registry.Splitter)},
		{"batcher", effName(cfg.Components.Batcher, d.Batcher), registry.Names(registry.Batcher)},
		{"evaluator", effName(cfg.Components.Evaluator, d.Evaluator), registry.Names(registry.Evaluator)},
		{"assembler", effName(cfg.Components.Assembler, d.Assembler), registry.Names(registry.Assembler)},
		{"writer", effName(cfg.Components.Writer, d.Writer), registry.Names(registry.Writer)},
	}
	for _, c := range checks {
		if !slices.Contains(c.names, c.name) {
			return fmt.Errorf("config: %s %q not registered (have %s)", c.kind, c.name, strings.Join(c.names, ", "))
		}
	}
	return nil
}

// WriterOptions 返回 Writer 的有效 Options：未配置时按实现名取默认值。
func WriterOptions(cfg Config) json.RawMessage {
	if len(cfg.Options.Writer) > 0 {
		return cfg.Options.Writer
	}
	return DefaultWriterOptions[effName(cfg.Components.Writer, Defaults().Components.Writer)]
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults().Components
	var (
		comp pipeline.Components
		err  error
	)
	if comp.Reader, err = registry.Reader[effName(cfg.Components.Reader, d.Reader)](cfg.Options.Reader); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reader: %w", err)
	}
	if comp.Splitter, err = registry.Splitter[effName(cfg.Components.Splitter, d.Splitter)](cfg.Options.Splitter); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.splitter: %w", err)
	}
	if comp.Batcher, err = registry.Batcher[effName(cfg.Components.Batcher, d.Batcher)](cfg.Options.Batcher); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.batcher: %w", err)
	}
	if comp.Evaluator, err = registry.Evaluator[effName(cfg.Components.Evaluator, d.Evaluator)](cfg.Options.Evaluator); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.evaluator: %w", err)
	}
	if comp.Assembler, err = registry.Assembler[effName(cfg.Components.Assembler, d.Assembler)](cfg.Options.Assembler); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.assembler: %w", err)
	}
	// Writer 最后构造：sqlite 会打开数据库，前面失败时无需关闭
	if comp.Writer, err = registry.Writer[effName(cfg.Components.Writer, d.Writer)](WriterOptions(cfg)); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.writer: %w", err)
	}

	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		Limit:       contract.BatchLimit{MaxLines: cfg.MaxLines, MaxBytes: cfg.MaxBytes},
		Sidecar:     cfg.SidecarEnabled(),
	}
	return comp, set, nil
}

// EffectiveComponents 返回补齐默认名后的组件名。
func EffectiveComponents(cfg Config) Components {
	d := Defaults().Components
	return Components{
		Reader:    effName(cfg.Components.Reader, d.Reader),
		Splitter:  effName(cfg.Components.Splitter, d.Splitter),
		Batcher:   effName(cfg.Components.Batcher, d.Batcher),
		Evaluator: effName(cfg.Components.Evaluator, d.Evaluator),
		Assembler: effName(cfg.Components.Assembler, d.Assembler),
		Writer:    effName(cfg.Components.Writer, d.Writer),
	}
}

func effName(got, def string) string {
	if got = strings.TrimSpace(got); got == "" {
		return def
	}
	return got
}
