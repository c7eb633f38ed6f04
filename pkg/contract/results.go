package contract

// ValidateResults 校验求值结果与批的一一对应关系，并返回深拷贝：
// - 长度与 b.Records 相同；
// - 第 i 个结果的 Index 等于 b.Records[i].Index；
// - FileID 为空时回填为批的 FileID，非空时必须一致。
// 纯函数，无 I/O。
func ValidateResults(b Batch, rs []Result) ([]Result, error) {
	if len(b.Records) == 0 {
		return nil, ErrInvalidInput
	}
	if len(rs) != len(b.Records) {
		return nil, ErrInvariantViolation
	}
	out := make([]Result, 0, len(rs))
	for i, r := range rs {
		rec := b.Records[i]
		if r.Index != rec.Index {
			return nil, ErrSeqInvalid
		}
		fid := r.FileID
		if fid == "" {
			fid = b.FileID
		}
		if fid != b.FileID {
			return nil, ErrSeqInvalid
		}
		out = append(out, Result{
			FileID: fid,
			Index:  r.Index,
			Src:    cloneString(r.Src),
			Output: cloneString(r.Output),
			Status: r.Status,
			Meta:   cloneMeta(r.Meta),
		})
	}
	return out, nil
}

// cloneString: 强制拷贝字符串，避免底层共享导致生命周期耦合。
func cloneString(s string) string {
	if s == "" {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}

// cloneMeta: 复制 Meta 映射，避免引用共享导致意外修改。
func cloneMeta(m Meta) Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
