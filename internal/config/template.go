package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 读取工作目录下的 input.txt，写出 ./output.txt；
// - 组件名采用仓库内置实现；
// - 选项给出安全中性默认值（包含全部键，便于按需修改）。
func DefaultTemplateConfig() Config {
	d := Defaults()
	sidecar := false
	cfg := Config{
		Inputs:      []string{DefaultInput},
		Concurrency: d.Concurrency,
		MaxLines:    256,
		MaxBytes:    0,
		Logging:     Logging{Level: "info"},
		Sidecar:     &sidecar,
		Components:  d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "skip_hidden": true,
  "include_exts": []
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "max_line_bytes": 0,
  "fail_on_long_line": false,
  "allow_exts": []
}`)
	cfg.Options.Batcher = json.RawMessage(`{
  "max_lines": 256,
  "max_bytes": 0
}`)
	cfg.Options.Evaluator = json.RawMessage(`{
  "strict_operators": false,
  "strict_numerals": false
}`)
	// lines 装配器无配置项，保持空对象
	cfg.Options.Assembler = json.RawMessage(`{}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": ".",
  "output_name": "output.txt",
  "atomic": true,
  "flat": true,
  "buf_size": 65536
}`)
	return cfg
}

// Encode 将配置编码为 json 或 yaml 文本（键顺序与结构体一致）。
func Encode(cfg Config, format string) ([]byte, error) {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "json":
		return append(b, '\n'), nil
	case "yaml", "yml":
		// JSON 是合法 YAML：经 Node 转换保留键顺序，再改为块样式输出
		var doc yaml.Node
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		blockStyle(&doc)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("config: unknown format %q (want json|yaml)", format)
	}
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		// 空集合保持 [] / {}
		if len(n.Content) > 0 {
			n.Style = 0
		}
	case yaml.ScalarNode:
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
