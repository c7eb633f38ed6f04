package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"romancalc/pkg/calc"
)

// newEvalCmd: 直接对参数（或 STDIN 各行）求值，每行输出一个结果。
func newEvalCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   `eval ["<numeral> <op> <numeral>"...]`,
		Short: "直接求值算式并逐行输出",
		Example: `  romancalc eval "X + V" "IIII * X"
  printf 'C - M\n' | romancalc eval`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []calc.Option
			if a.flags.strictOperators {
				opts = append(opts, calc.StrictOperators(true))
			}
			if a.flags.strictNumerals {
				opts = append(opts, calc.StrictNumerals(true))
			}
			emit := func(line string) {
				out, err := calc.EvalLine(line, opts...)
				text := out.Words
				if err != nil {
					text = calc.Message(err)
				}
				if verbose {
					status := calc.Status(err)
					if err == nil {
						fmt.Fprintf(a.stdout, "%s\t%s\t%d\t%s\n", line, status, out.Value, text)
					} else {
						fmt.Fprintf(a.stdout, "%s\t%s\t-\t%s\n", line, status, text)
					}
					return
				}
				fmt.Fprintln(a.stdout, text)
			}
			if len(args) > 0 {
				for _, l := range args {
					emit(l)
				}
				return nil
			}
			// 不使用 bufio.Scanner：单行无长度上限，超长行按普通行求值。
			br := bufio.NewReader(a.stdin)
			for {
				line, err := br.ReadString('\n')
				if line != "" {
					line = strings.TrimSuffix(line, "\n")
					emit(strings.TrimSuffix(line, "\r"))
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return &exitError{code: exitRuntime, err: fmt.Errorf("读取 STDIN 失败: %w", err)}
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出 行\\t状态\\t数值\\t结果")
	return cmd
}
