// Package watch 监视输入文件的变更，去抖后逐个回调。
//
// 文件 root 监视其父目录并只关注该文件；目录 root 仅监视顶层（不递归）。
// 以 "." 开头的文件（含原子写的临时文件）总被忽略。
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options 为监视器的可选配置。
type Options struct {
	// Debounce: 同一路径在静默该时长后才触发；<=0 使用 200ms。
	Debounce time.Duration
	// Ignore: 返回 true 的路径不触发（例如输出工件）。
	Ignore func(path string) bool
	// OnError: 接收 fsnotify 的错误；nil 表示忽略。
	OnError func(err error)
}

// Watcher 包装 fsnotify.Watcher。
type Watcher struct {
	fw       *fsnotify.Watcher
	files    map[string]struct{}
	dirs     map[string]struct{}
	debounce time.Duration
	ignore   func(string) bool
	onError  func(error)

	mu      sync.Mutex
	pending map[string]time.Time
}

const defaultDebounce = 200 * time.Millisecond

// New 为 roots 建立监视。"-"（STDIN）不可监视。
func New(roots []string, opts Options) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("watch: no roots")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		files:    map[string]struct{}{},
		dirs:     map[string]struct{}{},
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		onError:  opts.OnError,
		pending:  map[string]time.Time{},
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	for _, root := range roots {
		if err := w.add(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	if root == "-" {
		return errors.New("watch: stdin cannot be watched")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	dir := abs
	if info.IsDir() {
		w.dirs[abs] = struct{}{}
	} else {
		w.files[abs] = struct{}{}
		dir = filepath.Dir(abs)
	}
	return w.fw.Add(dir)
}

// Close 释放底层监视句柄。
func (w *Watcher) Close() error { return w.fw.Close() }

// relevant 判断事件路径是否应触发回调。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	p := filepath.Clean(ev.Name)
	if strings.HasPrefix(filepath.Base(p), ".") {
		return false
	}
	if w.ignore != nil && w.ignore(p) {
		return false
	}
	if _, ok := w.files[p]; ok {
		return true
	}
	if _, ok := w.dirs[filepath.Dir(p)]; !ok {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Run 阻塞处理事件直到 ctx 结束；到期路径按字典序依次调用 fn。
// fn 在本 goroutine 中同步执行，期间到达的事件在其返回后合并处理。
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, path string)) error {
	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.mu.Lock()
				w.pending[filepath.Clean(ev.Name)] = time.Now()
				w.mu.Unlock()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}
		case now := <-tick.C:
			for _, p := range w.due(now) {
				if ctx.Err() != nil {
					return nil
				}
				fn(ctx, p)
			}
		}
	}
}

// due 取出静默期已满的路径。
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for p, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	sort.Strings(out)
	return out
}
