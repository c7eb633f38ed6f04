package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix: 环境变量覆盖的前缀。
const EnvPrefix = "ROMANCALC_"

// 默认输入：无 roots 时读取工作目录下的 input.txt。
const DefaultInput = "input.txt"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Inputs:      []string{DefaultInput},
		Concurrency: 1,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Splitter:  "lines",
			Batcher:   "fixed",
			Evaluator: "roman",
			Assembler: "lines",
			Writer:    "fs",
		},
	}
}

// DefaultWriterOptions: Writer Options 为空时按实现名补齐的默认值。
// fs 默认把单个输入写为工作目录下的 output.txt。
var DefaultWriterOptions = map[string]json.RawMessage{
	"fs":     json.RawMessage(`{"output_dir":".","output_name":"output.txt"}`),
	"sqlite": json.RawMessage(`{"path":"romancalc.db"}`),
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	return decodeStrict(r)
}

// LoadYAML 解析 YAML 配置：先归一为 JSON，再按 JSON 规则严格解码。
func LoadYAML(raw []byte) (Config, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{}, errors.New("yaml: empty document")
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	return decodeStrict(bytes.NewReader(b))
}

// LoadFile 按扩展名选择解析方式：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg, err := LoadYAML(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	default:
		return LoadJSON(path, nil)
	}
}

func decodeStrict(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.MaxLines != 0 {
		out.MaxLines = over.MaxLines
	}
	if over.MaxBytes != 0 {
		out.MaxBytes = over.MaxBytes
	}
	if over.Sidecar != nil {
		v := *over.Sidecar
		out.Sidecar = &v
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if strings.TrimSpace(over.Logging.Dir) != "" {
		out.Logging.Dir = strings.TrimSpace(over.Logging.Dir)
	}

	// 组件名（空不覆盖）
	mergeName(&out.Components.Reader, over.Components.Reader)
	mergeName(&out.Components.Splitter, over.Components.Splitter)
	mergeName(&out.Components.Batcher, over.Components.Batcher)
	mergeName(&out.Components.Evaluator, over.Components.Evaluator)
	mergeName(&out.Components.Assembler, over.Components.Assembler)
	mergeName(&out.Components.Writer, over.Components.Writer)

	// Options（完整替换对应键）
	mergeRaw(&out.Options.Reader, over.Options.Reader)
	mergeRaw(&out.Options.Splitter, over.Options.Splitter)
	mergeRaw(&out.Options.Batcher, over.Options.Batcher)
	mergeRaw(&out.Options.Evaluator, over.Options.Evaluator)
	mergeRaw(&out.Options.Assembler, over.Options.Assembler)
	mergeRaw(&out.Options.Writer, over.Options.Writer)
	return out
}

func mergeName(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func mergeRaw(dst *json.RawMessage, v json.RawMessage) {
	if len(v) > 0 {
		*dst = cloneRaw(v)
	}
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 前缀 ROMANCALC_；集合之外的键忽略。
// 支持：INPUTS, CONCURRENCY, MAX_LINES, MAX_BYTES, SIDECAR, LOG_LEVEL, LOG_DIR,
// COMPONENTS_<NAME> 以及 OPTIONS_<NAME>_JSON。
// 数值或布尔解析失败返回错误（带键名）。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			// 空值视为未设置，避免覆盖配置文件
			continue
		}
		var err error
		switch nk := strings.TrimPrefix(key, EnvPrefix); nk {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			over.Concurrency, err = atoi(val)
		case "MAX_LINES":
			over.MaxLines, err = atoi(val)
		case "MAX_BYTES":
			over.MaxBytes, err = atoi(val)
		case "SIDECAR":
			var b bool
			if b, err = strconv.ParseBool(val); err == nil {
				over.Sidecar = &b
			}
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = val
		case "COMPONENTS_BATCHER":
			over.Components.Batcher = val
		case "COMPONENTS_EVALUATOR":
			over.Components.Evaluator = val
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader, err = rawJSON(val)
		case "OPTIONS_SPLITTER_JSON":
			over.Options.Splitter, err = rawJSON(val)
		case "OPTIONS_BATCHER_JSON":
			over.Options.Batcher, err = rawJSON(val)
		case "OPTIONS_EVALUATOR_JSON":
			over.Options.Evaluator, err = rawJSON(val)
		case "OPTIONS_ASSEMBLER_JSON":
			over.Options.Assembler, err = rawJSON(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer, err = rawJSON(val)
		}
		if err != nil {
			return Config{}, fmt.Errorf("env %s: %w", key, err)
		}
	}
	return over, nil
}

func rawJSON(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, errors.New("invalid JSON")
	}
	return json.RawMessage(s), nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
