package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 16)} }

func (r *recorder) fn(ctx context.Context, p string) {
	r.mu.Lock()
	r.paths = append(r.paths, p)
	r.mu.Unlock()
	r.ch <- p
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("等待回调超时")
		return ""
	}
}

// 启动监视并返回停止函数（等待 Run 退出）。
func start(t *testing.T, w *Watcher, rec *recorder) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, rec.fn) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
		require.NoError(t, w.Close())
	}
}

func TestWatchFileRoot(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	in := filepath.Join(dir, "input.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(in, []byte("I + I\n"), 0o644))

	w, err := New([]string{in}, Options{Debounce: 40 * time.Millisecond})
	require.NoError(t, err)
	rec := newRecorder()
	stop := start(t, w, rec)

	require.NoError(t, os.WriteFile(other, []byte("X\n"), 0o644))
	require.NoError(t, os.WriteFile(in, []byte("V + V\n"), 0o644))
	assert.Equal(t, in, rec.wait(t))
	stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.NotContains(t, rec.paths, other)
}

// 目录 root：新文件触发；隐藏文件与 Ignore 命中的文件不触发
func TestWatchDirRoot(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	out := filepath.Join(dir, "output.txt")
	w, err := New([]string{dir}, Options{
		Debounce: 40 * time.Millisecond,
		Ignore:   func(p string) bool { return p == out },
	})
	require.NoError(t, err)
	rec := newRecorder()
	stop := start(t, w, rec)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-1"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("Two\n"), 0o644))
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("I + I\n"), 0o644))
	assert.Equal(t, a, rec.wait(t))
	stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{a}, rec.paths)
}

// 去抖：连续写入只触发一次
func TestWatchDebounce(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	in := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(in, nil, 0o644))
	w, err := New([]string{in}, Options{Debounce: 150 * time.Millisecond})
	require.NoError(t, err)
	rec := newRecorder()
	stop := start(t, w, rec)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(in, []byte("X + X\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, in, rec.wait(t))
	time.Sleep(300 * time.Millisecond)
	stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.paths, 1)
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
	_, err = New([]string{"-"}, Options{})
	assert.Error(t, err)
	_, err = New([]string{filepath.Join(t.TempDir(), "missing")}, Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDue(t *testing.T) {
	w := &Watcher{debounce: time.Second, pending: map[string]time.Time{}}
	now := time.Now()
	w.pending["b"] = now.Add(-2 * time.Second)
	w.pending["a"] = now.Add(-3 * time.Second)
	w.pending["c"] = now
	assert.Equal(t, []string{"a", "b"}, w.due(now))
	assert.Len(t, w.pending, 1)
}
