package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"romancalc/internal/diag"
	"romancalc/internal/watch"
	"romancalc/pkg/contract"
)

// newWatchCmd: 先完整运行一次，之后在输入文件被写入时仅重算该文件，直到中断。
func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "监视输入并在文件变更时重新计算",
		Long: `watch 监视文件或目录（目录不递归），文件被写入后重新计算该文件。
输出工件（含 .jsonl 边车）不会触发重算；fs 输出目录不应与被监视目录相同。`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.prepare(cmd, args)
			if err != nil {
				return err
			}
			roots := p.cfg.Inputs
			ignore := outputFilter(p.comp.Writer)
			p.close()

			w, err := watch.New(roots, watch.Options{
				Debounce: debounce,
				Ignore:   ignore,
				OnError: func(err error) {
					fmt.Fprintf(a.stderr, "[watch] 监视错误: %v\n", err)
				},
			})
			if err != nil {
				fmt.Fprintln(a.stderr, msgOpenFailed)
				return &exitError{code: exitRuntime, err: fmt.Errorf("watch: %w", err)}
			}
			defer w.Close()

			a.runOnce(cmd.Context(), cmd, roots)
			fmt.Fprintf(a.stderr, "[watch] 监视 %s（Ctrl-C 退出）\n", strings.Join(roots, ", "))
			return w.Run(cmd.Context(), func(ctx context.Context, path string) {
				a.runOnce(ctx, cmd, []string{path})
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "同一文件连续写入的合并窗口")
	return cmd
}

// runOnce 以 roots 重新装配并运行一次；错误只报告不退出。
func (a *app) runOnce(ctx context.Context, cmd *cobra.Command, roots []string) bool {
	start := time.Now()
	p, err := a.prepare(cmd, roots)
	if err != nil {
		fmt.Fprintf(a.stderr, "[watch] %v\n", err)
		return false
	}
	defer p.close()
	stats, err := pipelineRun(ctx, p.comp, p.set, p.logger)
	if err != nil {
		p.logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(a.stderr, "[watch] 运行失败: %v\n", err)
		}
		return false
	}
	fmt.Fprintf(a.stderr, "[watch] %s | 行 %d | 行错误 %d | 用时 %s\n",
		strings.Join(roots, ", "), stats.Lines, stats.LineErrorTotal(), time.Since(start).Round(time.Millisecond))
	return true
}

// outputFilter 返回判断路径是否为输出工件的函数。
func outputFilter(w contract.Writer) func(string) bool {
	abs := ""
	isDir := false
	if l, ok := w.(contract.Locator); ok {
		if p, err := filepath.Abs(l.Location()); err == nil {
			abs = p
			if st, err := os.Stat(p); err == nil && st.IsDir() {
				isDir = true
			}
		}
	}
	return func(p string) bool {
		if strings.HasSuffix(p, ".jsonl") {
			return true
		}
		if abs == "" {
			return false
		}
		if p == abs || strings.HasPrefix(p, abs+"-") {
			// sqlite 的 -journal/-wal 文件同样忽略
			return true
		}
		return isDir && strings.HasPrefix(p, abs+string(filepath.Separator))
	}
}
