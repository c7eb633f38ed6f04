package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"romancalc/internal/diag"
	"romancalc/pkg/calc"
	"romancalc/pkg/contract"
)

// - 单点并发：仅此层管理并发与背压；原子组件均为同步、无内部并发。
// - 顺序门闩：同一 FileID 的批按 BatchIndex 严格递增提交；乱序结果暂存，连续冲刷。
// - 首错取消：任一阶段出现错误，记录首错并 cancel 整体；排空后返回该错误。
// - 行级错误（格式/数字/运算符）编码在 Result 中，不中断运行。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Splitter  contract.Splitter
	Batcher   contract.Batcher
	Evaluator contract.Evaluator
	Assembler contract.Assembler
	Writer    contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// 输入根（输出落点由 Writer 的 options 决定）
	Inputs      []string
	Concurrency int
	// Limit 传给 Batcher；零值使用 Batcher 自身默认。
	Limit contract.BatchLimit
	// Sidecar 为 true 时为每个工件写出 <id>.jsonl 逐行记录
	// （Writer 实现 SidecarSkipper 且返回 true 时跳过）。
	Sidecar bool
}

// Stats 汇总一次运行的处理量。
type Stats struct {
	Files   int
	Skipped int
	Lines   int64
	// LineErrors 按行状态（format|numeral|operator）计数。
	LineErrors map[string]int64
}

// LineErrorTotal 返回全部行级错误数。
func (s Stats) LineErrorTotal() int64 {
	var n int64
	for _, v := range s.LineErrors {
		n += v
	}
	return n
}

// SidecarRow 为 JSONL 边车的一行。Line 自 1 起。
type SidecarRow struct {
	FileID string `json:"file_id"`
	Line   int64  `json:"line"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Status string `json:"status"`
}

// Run 执行完整流水线：Reader → Splitter → Batcher → Evaluator(并发) → 顺序门闩 → Assembler → Writer。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	_, err := RunWithStats(ctx, comp, set, logger)
	return err
}

// RunWithStats 同 Run，并返回处理统计。
func RunWithStats(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Stats, error) {
	stats := Stats{LineErrors: map[string]int64{}}
	if err := sanity(comp, set); err != nil {
		return stats, fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.NewNop()
	}
	if set.Concurrency < 1 {
		set.Concurrency = 1
	}
	sidecar := set.Sidecar
	if sk, ok := comp.Writer.(contract.SidecarSkipper); ok && sk.SkipSidecar() {
		sidecar = false
	}
	r := &runner{comp: comp, set: set, sidecar: sidecar, logger: logger, stats: &stats}

	rtimer := logger.Start("reader", "iterate")
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		return r.file(ctx, fid, rc)
	})
	if err != nil {
		r.fail("reader", "iterate failed", err, "", "")
		return stats, fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(stats.Files))
	diag.IncOp("reader", "finish", "success")
	return stats, nil
}

type runner struct {
	comp    Components
	set     Settings
	sidecar bool
	logger  *diag.Logger
	stats   *Stats
}

// fail 记录阶段错误日志与指标。
func (r *runner) fail(comp, msg string, err error, fileID, batch string) {
	code := diag.Classify(err)
	r.logger.ErrorWithKV(comp, string(code), msg, nil, fileID, batch, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

// file 处理单个文件：拆分、切批、并发求值、顺序装配并写出。
func (r *runner) file(ctx context.Context, fid contract.FileID, src io.Reader) error {
	stimer := r.logger.StartWith("splitter", "split", string(fid), "")
	recs, err := r.comp.Splitter.Split(ctx, fid, src)
	if errors.Is(err, contract.ErrSkip) {
		r.logger.DebugStart("splitter", "skip", string(fid), "", map[string]string{"reason": err.Error()})
		r.stats.Skipped++
		return nil
	}
	if err != nil {
		r.fail("splitter", "split failed", err, string(fid), "")
		return fmt.Errorf("splitter split %s: %w", fid, err)
	}
	stimer.Finish("split", int64(len(recs)))
	diag.IncOp("splitter", "finish", "success")

	btimer := r.logger.StartWith("batcher", "make", string(fid), "")
	batches, err := r.comp.Batcher.Make(ctx, recs, r.set.Limit)
	if err != nil {
		r.fail("batcher", "make failed", err, string(fid), "")
		return fmt.Errorf("batcher make %s: %w", fid, err)
	}
	btimer.Finish("make", int64(len(batches)))
	diag.IncOp("batcher", "finish", "success")

	term := diag.GetTerminal()
	term.FileStart(string(fid), len(batches))
	fileStart := time.Now()
	fs := fileStats{errs: map[string]int64{}}
	ok := false
	defer func() {
		term.FileFinish(ok, int(fs.lines), int(fs.total()), time.Since(fileStart))
	}()

	if err := r.evaluate(ctx, fid, batches, &fs); err != nil {
		return err
	}
	r.stats.Files++
	r.stats.Lines += fs.lines
	for k, v := range fs.errs {
		r.stats.LineErrors[k] += v
	}
	diag.IncLines(calc.StatusOK, fs.lines-fs.total())
	for k, v := range fs.errs {
		diag.IncLines(k, v)
	}
	if n := fs.total(); n > 0 {
		kv := make(map[string]string, len(fs.errs))
		for k, v := range fs.errs {
			kv[k] = strconv.FormatInt(v, 10)
		}
		r.logger.Warn("evaluator", "line errors", string(fid), kv)
	}
	ok = true
	return nil
}

type fileStats struct {
	lines int64
	errs  map[string]int64
}

func (f *fileStats) total() int64 {
	var n int64
	for _, v := range f.errs {
		n += v
	}
	return n
}

type batchResult struct {
	idx     int64
	results []contract.Result
}

// evaluate 并发求值并经顺序门闩流式写出主工件；边车在主工件完成后写出。
func (r *runner) evaluate(parent context.Context, fid contract.FileID, batches []contract.Batch, fs *fileStats) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// 主工件：io.Pipe 流式写出
	pr, pw := io.Pipe()
	wdone := make(chan error, 1)
	wtimer := r.logger.StartWith("writer", "write", string(fid), "")
	go func() {
		err := r.comp.Writer.Write(ctx, contract.ArtifactID(fid), pr)
		// Writer 提前返回时让后续写入立即失败，避免阻塞
		_ = pr.CloseWithError(err)
		wdone <- err
	}()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan contract.Batch)
	out := make(chan batchResult, r.set.Concurrency*2)
	g.Go(func() error {
		defer close(jobs)
		for _, b := range batches {
			select {
			case jobs <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	var wg sync.WaitGroup
	for i := 0; i < r.set.Concurrency; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for b := range jobs {
				rs, err := r.evalBatch(gctx, b)
				if err != nil {
					return err
				}
				select {
				case out <- batchResult{idx: b.BatchIndex, results: rs}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	var side bytes.Buffer
	enc := json.NewEncoder(&side)
	enc.SetEscapeHTML(false)

	term := diag.GetTerminal()
	buf := map[int64][]contract.Result{}
	var expect int64
	var nextIndex contract.Index
	var firstErr error
	done := 0
	for br := range out {
		done++
		if firstErr != nil {
			// 排空
			continue
		}
		buf[br.idx] = br.results
		for {
			rs, ok := buf[expect]
			if !ok {
				break
			}
			delete(buf, expect)
			if err := r.flush(ctx, fid, expect, rs, &nextIndex, pw, enc, fs); err != nil {
				firstErr = err
				cancel()
				break
			}
			expect++
		}
		term.FileProgress(done, len(batches), int(fs.total()))
	}
	gerr := g.Wait()
	if firstErr == nil && gerr != nil {
		firstErr = gerr
		r.fail("evaluator", "evaluate failed", gerr, string(fid), "")
	}
	if firstErr == nil && expect != int64(len(batches)) {
		firstErr = fmt.Errorf("%w: %d of %d batches committed", contract.ErrInvariantViolation, expect, len(batches))
	}
	if firstErr != nil {
		_ = pw.CloseWithError(firstErr)
	} else {
		_ = pw.Close()
	}
	werr := <-wdone
	// Writer 读到的是我们传入的首错时，以首错为准；否则 Writer 自身错误优先
	if firstErr != nil && (werr == nil || errors.Is(werr, firstErr)) {
		return fmt.Errorf("evaluate %s: %w", fid, firstErr)
	}
	if werr != nil {
		r.fail("writer", "write failed", werr, string(fid), "")
		return fmt.Errorf("writer write %s: %w", fid, werr)
	}
	wtimer.Finish("write", fs.lines)
	diag.IncOp("writer", "finish", "success")

	if r.sidecar {
		jid := contract.ArtifactID(string(fid) + ".jsonl")
		if err := r.comp.Writer.Write(parent, jid, &side); err != nil {
			r.fail("writer", "write sidecar failed", err, string(fid), "")
			return fmt.Errorf("writer write(jsonl) %s: %w", fid, err)
		}
		diag.IncOp("writer", "sidecar", "success")
	}
	return nil
}

// evalBatch 调用 Evaluator 并校验结果与批一一对应。
func (r *runner) evalBatch(ctx context.Context, b contract.Batch) ([]contract.Result, error) {
	bid := strconv.FormatInt(b.BatchIndex, 10)
	r.logger.DebugStart("evaluator", "dispatch", string(b.FileID), bid, map[string]string{
		"from":  strconv.FormatInt(int64(b.First()), 10),
		"to":    strconv.FormatInt(int64(b.Last()), 10),
		"lines": strconv.Itoa(len(b.Records)),
	})
	t0 := time.Now()
	rs, err := r.comp.Evaluator.Evaluate(ctx, b)
	if err == nil {
		rs, err = contract.ValidateResults(b, rs)
	}
	if err != nil {
		r.fail("evaluator", "evaluate failed", err, string(b.FileID), bid)
		return nil, fmt.Errorf("evaluator batch %d: %w", b.BatchIndex, err)
	}
	diag.ObserveDuration("evaluator", "evaluate", time.Since(t0).Milliseconds())
	diag.IncOp("evaluator", "finish", "success")
	return rs, nil
}

// flush 提交一个已就绪的批：校验跨批连续、记录边车行、装配并写入主工件。
func (r *runner) flush(ctx context.Context, fid contract.FileID, idx int64, rs []contract.Result, next *contract.Index, w io.Writer, enc *json.Encoder, fs *fileStats) error {
	bid := strconv.FormatInt(idx, 10)
	if len(rs) > 0 && rs[0].Index != *next {
		err := fmt.Errorf("%w: batch %d starts at %d, want %d", contract.ErrSeqInvalid, idx, rs[0].Index, *next)
		r.fail("pipeline", "order gate", err, string(fid), bid)
		return err
	}
	for _, res := range rs {
		fs.lines++
		if res.Status != "" && res.Status != calc.StatusOK {
			fs.errs[res.Status]++
		}
		if r.sidecar {
			row := SidecarRow{FileID: string(fid), Line: int64(res.Index) + 1, Src: res.Src, Dst: res.Output, Status: res.Status}
			if err := enc.Encode(&row); err != nil {
				return err
			}
		}
	}
	if len(rs) > 0 {
		*next = rs[len(rs)-1].Index + 1
	}
	atimer := r.logger.StartWith("assembler", "assemble", string(fid), bid)
	rd, err := r.comp.Assembler.Assemble(ctx, fid, rs)
	if err != nil {
		r.fail("assembler", "assemble failed", err, string(fid), bid)
		return fmt.Errorf("assembler assemble: %w", err)
	}
	atimer.Finish("assemble", int64(len(rs)))
	diag.IncOp("assembler", "finish", "success")
	if _, err := io.Copy(w, rd); err != nil {
		return fmt.Errorf("stream to writer: %w", err)
	}
	return nil
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Splitter == nil || c.Batcher == nil || c.Evaluator == nil || c.Assembler == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
