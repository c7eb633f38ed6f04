package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识，与 FileID 复用同一表示。
// 主工件与源文件同名（由 Writer 决定最终落点）；边车工件以 ".jsonl" 结尾。
type ArtifactID = FileID

// Writer: 将装配结果以流式方式持久化到目标介质（文件系统/标准输出/SQLite）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 流式读取 r，不修改业务内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}

// SidecarSkipper: 可选扩展。实现方返回 true 时，编排层不为其写出 JSONL 边车。
type SidecarSkipper interface {
	SkipSidecar() bool
}

// Locator: 可选扩展。返回结果落点的人类可读描述（目录、文件或数据库路径），
// 用于运行结束时的提示信息。
type Locator interface {
	Location() string
}
