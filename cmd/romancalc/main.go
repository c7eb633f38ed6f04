package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// 退出码
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码；err 为 nil 时不再打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func configErr(format string, a ...any) error {
	return &exitError{code: exitConfig, err: fmt.Errorf(format, a...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute 运行命令树并把错误映射为退出码。
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "%v\n", ee.err)
		}
		return ee.code
	}
	// 旗标/参数解析错误
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return exitConfig
}

// app 持有命令共享的 IO 与旗标。
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	flags  cliFlags
}

type cliFlags struct {
	config          string
	concurrency     int
	writer          string
	outputDir       string
	strictOperators bool
	strictNumerals  bool
	logLevel        string
	sidecar         bool
	status          bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "romancalc [roots...]",
		Short: "逐行计算罗马数字算式并输出英文结果",
		Long: `romancalc 逐行读取 "<罗马数字> <运算符> <罗马数字>" 形式的算式，
以英文单词写出结果；无法解析的行输出固定错误消息并继续。

roots 为文件或目录；"-" 表示 STDIN。未给出时读取 ./input.txt 并写出 ./output.txt。`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, args)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.config, "config", "", "配置文件路径（.json/.yaml）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	pf.IntVar(&a.flags.concurrency, "concurrency", 0, "并发度（覆盖配置）")
	pf.StringVar(&a.flags.writer, "writer", "", "输出实现：fs|stdout|sqlite（覆盖配置）")
	pf.StringVar(&a.flags.outputDir, "output-dir", "", "fs 输出目录；设置后按源文件名写出")
	pf.BoolVar(&a.flags.strictOperators, "strict-operators", false, "未知运算符输出错误消息而非 Zero")
	pf.BoolVar(&a.flags.strictNumerals, "strict-numerals", false, "拒绝非规范罗马数字（如 IIII）")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "日志级别：debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&a.flags.sidecar, "sidecar", false, "为每个工件写出 <id>.jsonl 逐行记录")
	pf.BoolVar(&a.flags.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")

	run := &cobra.Command{
		Use:   "run [roots...]",
		Short: "运行流水线（默认命令）",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, args)
		},
	}
	root.AddCommand(run, newEvalCmd(a), newInitCmd(a), newWatchCmd(a))
	return root
}
