package fixed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"romancalc/pkg/contract"
)

func records(n int, text string) []contract.Record {
	recs := make([]contract.Record, n)
	for i := range recs {
		recs[i] = contract.Record{Index: contract.Index(i), FileID: "f", Text: text}
	}
	return recs
}

// TestMakeByLines 按行数切批
func TestMakeByLines(t *testing.T) {
	b := New(nil)
	batches, err := b.Make(context.Background(), records(7, "X + V"), contract.BatchLimit{MaxLines: 3})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("expect 3 batches, got %d", len(batches))
	}
	wantSizes := []int{3, 3, 1}
	var next contract.Index
	for i, bt := range batches {
		if len(bt.Records) != wantSizes[i] || bt.BatchIndex != int64(i) {
			t.Fatalf("batch %d 不符: size=%d idx=%d", i, len(bt.Records), bt.BatchIndex)
		}
		if bt.First() != next {
			t.Fatalf("batch %d 不连续: first=%d want=%d", i, bt.First(), next)
		}
		next = bt.Last() + 1
	}
}

// TestMakeByBytes 按字节切批；超限单行独占一批
func TestMakeByBytes(t *testing.T) {
	recs := []contract.Record{
		{Index: 0, FileID: "f", Text: "aaaa"},
		{Index: 1, FileID: "f", Text: "bbbb"},
		{Index: 2, FileID: "f", Text: "cccccccccc"},
		{Index: 3, FileID: "f", Text: "d"},
	}
	b := New(&Options{MaxLines: 100})
	batches, err := b.Make(context.Background(), recs, contract.BatchLimit{MaxBytes: 8})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	got := make([]string, 0, len(batches))
	for _, bt := range batches {
		got = append(got, fmt.Sprintf("%d-%d", bt.First(), bt.Last()))
	}
	want := "[0-1 2-2 3-3]"
	if fmt.Sprint(got) != want {
		t.Fatalf("切分结果 %v, 期望 %s", got, want)
	}
}

// TestMakeDefaults 默认行数上限来自 Options
func TestMakeDefaults(t *testing.T) {
	b := New(&Options{MaxLines: 2})
	batches, err := b.Make(context.Background(), records(5, "I + I"), contract.BatchLimit{})
	if err != nil || len(batches) != 3 {
		t.Fatalf("expect 3 batches, got %d (%v)", len(batches), err)
	}
	if batches, _ := New(nil).Make(context.Background(), nil, contract.BatchLimit{}); batches != nil {
		t.Fatalf("空输入应无批")
	}
}

// TestMakeIndexError 测试索引不连续与混入其他文件
func TestMakeIndexError(t *testing.T) {
	b := New(nil)
	recs := []contract.Record{
		{Index: 0, FileID: "f", Text: "a"},
		{Index: 2, FileID: "f", Text: "b"},
	}
	if _, err := b.Make(context.Background(), recs, contract.BatchLimit{}); !errors.Is(err, contract.ErrSeqInvalid) {
		t.Fatalf("expect ErrSeqInvalid, got %v", err)
	}
	recs[1] = contract.Record{Index: 1, FileID: "g", Text: "b"}
	if _, err := b.Make(context.Background(), recs, contract.BatchLimit{}); !errors.Is(err, contract.ErrSeqInvalid) {
		t.Fatalf("expect ErrSeqInvalid, got %v", err)
	}
	recs = []contract.Record{{Index: 1, FileID: "f"}}
	if _, err := b.Make(context.Background(), recs, contract.BatchLimit{}); !errors.Is(err, contract.ErrSeqInvalid) {
		t.Fatalf("首个 Index 非 0 应失败, got %v", err)
	}
}

// TestMakeCanceled 取消
func TestMakeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Make(ctx, records(3, "I + I"), contract.BatchLimit{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
}

func BenchmarkMake(b *testing.B) {
	recs := records(100000, "MCMXCIV * XLII")
	bt := New(nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bt.Make(context.Background(), recs, contract.BatchLimit{MaxLines: 512}); err != nil {
			b.Fatal(err)
		}
	}
}
