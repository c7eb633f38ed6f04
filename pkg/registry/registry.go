package registry

import (
	"bytes"
	"encoding/json"
	"sort"

	"romancalc/pkg/contract"
	alines "romancalc/plugins/assembler/lines"
	bfixed "romancalc/plugins/batcher/fixed"
	eroman "romancalc/plugins/evaluator/roman"
	rfs "romancalc/plugins/reader/filesystem"
	slines "romancalc/plugins/splitter/lines"
	wfs "romancalc/plugins/writer/filesystem"
	wsql "romancalc/plugins/writer/sqlite"
	wstd "romancalc/plugins/writer/stdout"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewSplitter 工厂签名：接收原样 JSON Options。
type NewSplitter func(raw json.RawMessage) (contract.Splitter, error)

// NewBatcher 工厂签名：接收原样 JSON Options。
type NewBatcher func(raw json.RawMessage) (contract.Batcher, error)

// NewEvaluator 工厂签名：接收原样 JSON Options。
type NewEvaluator func(raw json.RawMessage) (contract.Evaluator, error)

// NewAssembler 工厂签名：接收原样 JSON Options。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// lines: 按行拆分
	"lines": func(raw json.RawMessage) (contract.Splitter, error) {
		var opts slines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return slines.New(&opts), nil
	},
}

// Batcher 工厂注册表。
var Batcher = map[string]NewBatcher{
	// fixed: 定长连续分批
	"fixed": func(raw json.RawMessage) (contract.Batcher, error) {
		var opts bfixed.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return bfixed.New(&opts), nil
	},
}

// Evaluator 工厂注册表。
var Evaluator = map[string]NewEvaluator{
	// roman: 罗马数字算式求值
	"roman": func(raw json.RawMessage) (contract.Evaluator, error) {
		var opts eroman.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return eroman.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// lines: 按 Index 升序逐行拼接
	"lines": func(raw json.RawMessage) (contract.Assembler, error) {
		var opts alines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return alines.New(), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
	// stdout: 标准输出（不写边车）
	"stdout": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wstd.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wstd.New(&opts), nil
	},
	// sqlite: SQLite 结果库
	"sqlite": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wsql.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wsql.New(&opts)
	},
}

// Names 返回注册表中的名称（字典序），用于错误提示与帮助信息。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
