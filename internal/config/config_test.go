package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romancalc/plugins/writer/stdout"
)

// 解析完整 config.json
func TestLoadJSON(t *testing.T) {
	cfg, err := LoadJSON("../../testdata/config/basic.json", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"input.txt"}, cfg.Inputs)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 64, cfg.MaxLines)
	assert.True(t, cfg.SidecarEnabled())
	assert.Equal(t, "roman", cfg.Components.Evaluator)
	assert.JSONEq(t, `{"strict_operators": true}`, string(cfg.Options.Evaluator))
	require.NoError(t, Validate(cfg))
}

// YAML 与 JSON 解析结果一致
func TestLoadFileYAML(t *testing.T) {
	fromJSON, err := LoadFile("../../testdata/config/basic.json")
	require.NoError(t, err)
	fromYAML, err := LoadFile("../../testdata/config/basic.yaml")
	require.NoError(t, err)

	assert.Equal(t, fromJSON.Inputs, fromYAML.Inputs)
	assert.Equal(t, fromJSON.Concurrency, fromYAML.Concurrency)
	assert.Equal(t, fromJSON.Logging, fromYAML.Logging)
	assert.Equal(t, fromJSON.Components, fromYAML.Components)
	assert.Equal(t, fromJSON.SidecarEnabled(), fromYAML.SidecarEnabled())
	assert.JSONEq(t, string(fromJSON.Options.Writer), string(fromYAML.Options.Writer))
	assert.JSONEq(t, string(fromJSON.Options.Evaluator), string(fromYAML.Options.Evaluator))
}

func TestLoadYAMLUnknown(t *testing.T) {
	_, err := LoadYAML([]byte("concurrency: 1\nbogus: true\n"))
	assert.Error(t, err)
	_, err = LoadYAML([]byte(""))
	assert.Error(t, err)
	_, err = LoadYAML([]byte("inputs: [unclosed"))
	assert.Error(t, err)
}

// 含非法字段
func TestLoadJSONUnknown(t *testing.T) {
	_, err := LoadJSON("", []byte(`{"unknown":1}`))
	assert.Error(t, err)
	_, err = LoadJSON("", nil)
	assert.Error(t, err)
	_, err = LoadJSON(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ENV 覆盖部分字段
func TestEnvOverlay(t *testing.T) {
	env := []string{
		"ROMANCALC_INPUTS=a, b",
		"ROMANCALC_CONCURRENCY=3",
		"ROMANCALC_MAX_LINES=10",
		"ROMANCALC_SIDECAR=true",
		"ROMANCALC_LOG_LEVEL=warn",
		"ROMANCALC_COMPONENTS_WRITER=stdout",
		"ROMANCALC_OPTIONS_EVALUATOR_JSON={\"strict_numerals\":true}",
		"ROMANCALC_MAX_BYTES=",
		"OTHER_CONCURRENCY=9",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, over.Inputs)
	assert.Equal(t, 3, over.Concurrency)
	assert.Equal(t, 10, over.MaxLines)
	assert.Equal(t, 0, over.MaxBytes)
	assert.True(t, over.SidecarEnabled())
	assert.Equal(t, "warn", over.Logging.Level)
	assert.Equal(t, "stdout", over.Components.Writer)
	assert.JSONEq(t, `{"strict_numerals":true}`, string(over.Options.Evaluator))
}

func TestEnvOverlayErrors(t *testing.T) {
	for _, kv := range []string{
		"ROMANCALC_CONCURRENCY=many",
		"ROMANCALC_SIDECAR=perhaps",
		"ROMANCALC_OPTIONS_WRITER_JSON={",
	} {
		_, err := EnvOverlay([]string{kv})
		assert.Error(t, err, kv)
	}
}

// 合并：空值不覆盖，Options 整体替换
func TestMerge(t *testing.T) {
	base := Defaults()
	base.Options.Writer = json.RawMessage(`{"output_dir":"a"}`)
	off := false
	over := Config{
		Concurrency: 4,
		Sidecar:     &off,
		Components:  Components{Evaluator: " roman "},
		Options:     Options{Writer: json.RawMessage(`{"output_dir":"b"}`)},
	}
	got := Merge(base, over)
	assert.Equal(t, 4, got.Concurrency)
	assert.Equal(t, []string{DefaultInput}, got.Inputs)
	assert.Equal(t, "roman", got.Components.Evaluator)
	assert.Equal(t, "fs", got.Components.Writer)
	assert.False(t, got.SidecarEnabled())
	require.NotNil(t, got.Sidecar)
	assert.JSONEq(t, `{"output_dir":"b"}`, string(got.Options.Writer))

	// 合并结果不与覆盖源共享底层数组
	over.Options.Writer[2] = 'X'
	assert.JSONEq(t, `{"output_dir":"b"}`, string(got.Options.Writer))
}

func TestSplitCommaAtoi(t *testing.T) {
	parts := splitComma("a, b , ,c")
	assert.Equal(t, []string{"a", "b", "c"}, parts)
	v, err := atoi(" 10 ")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	_, err = atoi("1x")
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	assert.Error(t, Validate(Config{}))

	cases := map[string]func(*Config){
		"empty input":     func(c *Config) { c.Inputs = []string{" "} },
		"dash mixed":      func(c *Config) { c.Inputs = []string{"-", "a"} },
		"concurrency":     func(c *Config) { c.Concurrency = 0 },
		"max_lines":       func(c *Config) { c.MaxLines = -1 },
		"max_bytes":       func(c *Config) { c.MaxBytes = -1 },
		"log level":       func(c *Config) { c.Logging.Level = "loud" },
		"unknown writer":  func(c *Config) { c.Components.Writer = "s3" },
		"unknown batcher": func(c *Config) { c.Components.Batcher = "sliding" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultTemplateConfig()
			mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	cfg := DefaultTemplateConfig()
	cfg.Components.Writer = "s3"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fs, sqlite, stdout")
}

func TestAssembleDefaults(t *testing.T) {
	cfg := Defaults()
	comp, set, err := Assemble(cfg)
	require.NoError(t, err)
	assert.NotNil(t, comp.Reader)
	assert.NotNil(t, comp.Splitter)
	assert.NotNil(t, comp.Batcher)
	assert.NotNil(t, comp.Evaluator)
	assert.NotNil(t, comp.Assembler)
	assert.NotNil(t, comp.Writer)
	assert.Equal(t, []string{DefaultInput}, set.Inputs)
	assert.Equal(t, 1, set.Concurrency)
	assert.False(t, set.Sidecar)
}

func TestAssembleTemplate(t *testing.T) {
	cfg := DefaultTemplateConfig()
	cfg.MaxBytes = 4096
	on := true
	cfg.Sidecar = &on
	_, set, err := Assemble(cfg)
	require.NoError(t, err)
	assert.Equal(t, 256, set.Limit.MaxLines)
	assert.Equal(t, 4096, set.Limit.MaxBytes)
	assert.True(t, set.Sidecar)
}

// 切换 Writer 且未配置其 Options 时使用该实现的默认值
func TestAssembleWriterDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Components.Writer = "stdout"
	comp, _, err := Assemble(cfg)
	require.NoError(t, err)
	assert.IsType(t, &stdout.Stdout{}, comp.Writer)

	cfg.Components.Writer = "sqlite"
	cfg.Options.Writer = json.RawMessage(`{"path":"` + filepath.ToSlash(filepath.Join(t.TempDir(), "r.db")) + `"}`)
	comp, _, err = Assemble(cfg)
	require.NoError(t, err)
	if c, ok := comp.Writer.(interface{ Close() error }); ok {
		require.NoError(t, c.Close())
	}
	assert.JSONEq(t, `{"path":"romancalc.db"}`, string(DefaultWriterOptions["sqlite"]))
}

// 组件 Options 严格解析：未知键报错
func TestAssembleStrictOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Options.Evaluator = json.RawMessage(`{"strict":true}`)
	_, _, err := Assemble(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options.evaluator")

	cfg = Defaults()
	cfg.Components.Writer = "stdout"
	cfg.Options.Writer = json.RawMessage(`{"output_dir":"x"}`)
	_, _, err = Assemble(cfg)
	assert.Error(t, err)
}

func TestEffectiveComponents(t *testing.T) {
	got := EffectiveComponents(Config{Components: Components{Writer: "stdout"}})
	want := Defaults().Components
	want.Writer = "stdout"
	assert.Equal(t, want, got)
}

// 模板可被严格解析回同一配置
func TestEncodeRoundTrip(t *testing.T) {
	tpl := DefaultTemplateConfig()
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			b, err := Encode(tpl, format)
			require.NoError(t, err)
			var got Config
			if format == "json" {
				got, err = LoadJSON("", b)
			} else {
				got, err = LoadYAML(b)
			}
			require.NoError(t, err, string(b))
			assert.Equal(t, tpl.Inputs, got.Inputs)
			assert.Equal(t, tpl.Components, got.Components)
			assert.Equal(t, tpl.MaxLines, got.MaxLines)
			assert.False(t, got.SidecarEnabled())
			assert.JSONEq(t, string(tpl.Options.Writer), string(got.Options.Writer))
			assert.JSONEq(t, string(tpl.Options.Reader), string(got.Options.Reader))
			require.NoError(t, Validate(got))
		})
	}
	_, err := Encode(tpl, "toml")
	assert.Error(t, err)
}
