package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// MaxLines/MaxBytes: 每批上限，传给 Batcher；0 表示使用 Batcher 自身默认。
	MaxLines int     `json:"max_lines"`
	MaxBytes int     `json:"max_bytes"`
	Logging  Logging `json:"logging"`
	// Sidecar: 是否为每个工件写出 <id>.jsonl 逐行记录；nil 表示未设置（默认关闭）。
	Sidecar *bool `json:"sidecar,omitempty"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
	// Dir: 日志目录；空表示 ./logs。
	Dir string `json:"dir,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Splitter  string `json:"splitter"`
	Batcher   string `json:"batcher"`
	Evaluator string `json:"evaluator"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Splitter  json.RawMessage `json:"splitter,omitempty"`
	Batcher   json.RawMessage `json:"batcher,omitempty"`
	Evaluator json.RawMessage `json:"evaluator,omitempty"`
	Assembler json.RawMessage `json:"assembler,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}

// SidecarEnabled 返回边车开关的有效值。
func (c Config) SidecarEnabled() bool { return c.Sidecar != nil && *c.Sidecar }
