package contract

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	wpath := filepath.Join("a", "b", "c")
	basicCases := map[string]string{
		wpath:      "a/b/c",
		"./x/../y": "y",
		"":         ".",
	}
	for in, want := range basicCases {
		got := NormalizeFileID(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Windows路径", "C:\\calc\\input.txt", "C:/calc/input.txt"},
		{"清理多余斜杠", "path//to///input.txt", "path/to/input.txt"},
		{"处理父目录", "path/to/../from/input.txt", "path/from/input.txt"},
		{"单个点", ".", "."},
		{"根路径", "/", "/"},
		{"Windows根", "C:\\", "C:"},
		{"混合分隔符", "C:\\Users/test\\Documents/input.txt", "C:/Users/test/Documents/input.txt"},
		{"空格路径", "My Documents\\My File.txt", "My Documents/My File.txt"},
		{"仅分隔符", "\\\\\\///", "/"},
		{"复杂父目录", "a\\b\\c\\..\\..\\..\\..\\d", "../d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeFileID(tt.input)
			if string(result) != tt.expected {
				t.Errorf("NormalizeFileID(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func batchOf(fid FileID, from Index, texts ...string) Batch {
	b := Batch{FileID: fid}
	for i, s := range texts {
		b.Records = append(b.Records, Record{Index: from + Index(i), FileID: fid, Text: s})
	}
	return b
}

// TestValidateResultsSuccess 验证成功路径、FileID 回填与深拷贝。
func TestValidateResultsSuccess(t *testing.T) {
	b := batchOf("f", 3, "X + V", "I + I")
	rs := []Result{
		{Index: 3, Src: "X + V", Output: "Fifteen", Status: "ok"},
		{FileID: "f", Index: 4, Src: "I + I", Output: "Two", Status: "ok", Meta: Meta{"value": "2"}},
	}
	out, err := ValidateResults(b, rs)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out[0].FileID != "f" {
		t.Fatalf("FileID 未回填: %q", out[0].FileID)
	}
	rs[1].Meta["value"] = "x"
	if out[1].Meta["value"] != "2" {
		t.Fatalf("Meta 未拷贝")
	}
	if b.First() != 3 || b.Last() != 4 {
		t.Fatalf("First/Last 错误: %d %d", b.First(), b.Last())
	}
}

// TestValidateResultsErrors 覆盖各类错误分支。
func TestValidateResultsErrors(t *testing.T) {
	b := batchOf("f", 0, "a", "b")
	cases := []struct {
		name string
		b    Batch
		rs   []Result
		want error
	}{
		{"empty batch", Batch{FileID: "f"}, nil, ErrInvalidInput},
		{"len mismatch", b, []Result{{Index: 0}}, ErrInvariantViolation},
		{"index mismatch", b, []Result{{Index: 0}, {Index: 2}}, ErrSeqInvalid},
		{"file mismatch", b, []Result{{Index: 0}, {FileID: "g", Index: 1}}, ErrSeqInvalid},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateResults(tt.b, tt.rs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v got %v", tt.want, err)
			}
		})
	}
}

// TestEmptyBatchBounds 空批边界。
func TestEmptyBatchBounds(t *testing.T) {
	var b Batch
	if b.First() != 0 || b.Last() != -1 {
		t.Fatalf("空批边界错误: %d %d", b.First(), b.Last())
	}
}

// TestCloneHelpers 验证拷贝函数。
func TestCloneHelpers(t *testing.T) {
	if cloneString("") != "" || cloneString("abc") != "abc" {
		t.Fatalf("cloneString 结果错误")
	}
	if cloneMeta(nil) != nil {
		t.Fatalf("nil 应返回 nil")
	}
	m := Meta{"k": "v"}
	c := cloneMeta(m)
	m["k"] = "x"
	if c["k"] != "v" {
		t.Fatalf("clone 未独立")
	}
}

func BenchmarkNormalizeFileID(b *testing.B) {
	paths := []string{
		"C:\\Users\\test\\Documents\\input.txt",
		"src/main/../../../test/data/input.txt",
		"path//to///many////slashes/input.txt",
	}
	for i := 0; i < b.N; i++ {
		for _, p := range paths {
			NormalizeFileID(p)
		}
	}
}
