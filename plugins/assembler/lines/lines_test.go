package lines

import (
	"context"
	"io"
	"testing"

	"romancalc/pkg/contract"
)

// TestAssembleSuccess 测试正常按行拼接
func TestAssembleSuccess(t *testing.T) {
	a := New()
	results := []contract.Result{
		{FileID: "f", Index: 0, Output: "Fifteen"},
		{FileID: "f", Index: 1, Output: "Invalid input format."},
		{FileID: "f", Index: 2, Output: ""},
	}
	r, err := a.Assemble(context.Background(), "f", results)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	b, _ := io.ReadAll(r)
	if string(b) != "Fifteen\nInvalid input format.\n\n" {
		t.Fatalf("unexpected output %q", string(b))
	}
}

// TestAssembleSeqInvalid 测试 FileID 混入导致错误
func TestAssembleSeqInvalid(t *testing.T) {
	a := New()
	results := []contract.Result{{FileID: "a", Index: 0, Output: "x"}}
	if _, err := a.Assemble(context.Background(), "b", results); err != contract.ErrSeqInvalid {
		t.Fatalf("expect ErrSeqInvalid, got %v", err)
	}
}

// TestAssembleGap 测试索引逆序或缺口
func TestAssembleGap(t *testing.T) {
	a := New()
	results := []contract.Result{
		{FileID: "f", Index: 0, Output: "a"},
		{FileID: "f", Index: 2, Output: "b"},
	}
	if _, err := a.Assemble(context.Background(), "f", results); err != contract.ErrSeqInvalid {
		t.Fatalf("expect ErrSeqInvalid, got %v", err)
	}
	results[1].Index = 0
	if _, err := a.Assemble(context.Background(), "f", results); err != contract.ErrSeqInvalid {
		t.Fatalf("重复索引应失败, got %v", err)
	}
}

// TestAssembleEmpty 测试空输入
func TestAssembleEmpty(t *testing.T) {
	r, err := New().Assemble(context.Background(), "f", nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	data, _ := io.ReadAll(r)
	if len(data) != 0 {
		t.Fatalf("expect empty, got %q", string(data))
	}
}

// TestAssembleCanceled 取消
func TestAssembleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Assemble(ctx, "f", nil); err != context.Canceled {
		t.Fatalf("expect canceled, got %v", err)
	}
}

// TestAssembleMidFile 后续批自任意起点连续即可
func TestAssembleMidFile(t *testing.T) {
	results := []contract.Result{
		{FileID: "f", Index: 256, Output: "One"},
		{FileID: "f", Index: 257, Output: "Two"},
	}
	r, err := New().Assemble(context.Background(), "f", results)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	b, _ := io.ReadAll(r)
	if string(b) != "One\nTwo\n" {
		t.Fatalf("unexpected output %q", string(b))
	}
}
