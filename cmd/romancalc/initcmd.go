package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "romancalc/internal/config"
)

// newInitCmd: 生成默认配置与 .env 模板（已存在则跳过，不覆盖）。
func newInitCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "在目录中生成 config.json（或 config.yaml）与 .env 模板",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			ext := ".json"
			switch strings.ToLower(format) {
			case "json":
			case "yaml", "yml":
				ext = ".yaml"
			default:
				return configErr("未知格式 %q（json|yaml）", format)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			b, err := cfgpkg.Encode(cfgpkg.DefaultTemplateConfig(), format)
			if err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			cfgPath := filepath.Join(dir, "config"+ext)
			created, err := writeNew(cfgPath, b)
			if err != nil {
				return configErr("生成默认配置失败: %w", err)
			}
			if created {
				fmt.Fprintf(a.stderr, "已生成 %s\n", cfgPath)
			} else {
				fmt.Fprintf(a.stderr, "已存在，跳过 %s\n", cfgPath)
			}
			envPath := filepath.Join(dir, ".env")
			if created, err := writeNew(envPath, []byte(dotEnvTemplate())); err != nil {
				fmt.Fprintf(a.stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			} else if created {
				fmt.Fprintf(a.stderr, "已生成 %s\n", envPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "配置格式：json|yaml")
	return cmd
}

// writeNew 仅在文件不存在时创建并写入；已存在返回 (false, nil)。
func writeNew(path string, b []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return true, err
	}
	return true, f.Close()
}

// dotEnvTemplate 列出支持的覆盖项；空值表示未设置。
func dotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# romancalc .env 模板（由 init 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString("ROMANCALC_CONFIG_FILE=\n")
	b.WriteString("ROMANCALC_CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"INPUTS", "CONCURRENCY", "MAX_LINES", "MAX_BYTES", "SIDECAR", "LOG_LEVEL", "LOG_DIR"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择与 Options（原样 JSON）\n")
	for _, c := range []string{"READER", "SPLITTER", "BATCHER", "EVALUATOR", "ASSEMBLER", "WRITER"} {
		b.WriteString(cfgpkg.EnvPrefix + "COMPONENTS_" + c + "=\n")
		b.WriteString(cfgpkg.EnvPrefix + "OPTIONS_" + c + "_JSON=\n")
	}
	return b.String()
}
