package testdata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "romancalc/internal/config"
	"romancalc/internal/pipeline"
	"romancalc/pkg/contract"
	wsql "romancalc/plugins/writer/sqlite"
)

var input = filepath.Join("files", "input.txt")

func golden(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("files", name))
	require.NoError(t, err)
	return string(b)
}

func baseConfig(in, outDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = []string{in}
	cfg.Logging.Level = "error"
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"atomic":true,"flat":true}`, outDir))
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config) (pipeline.Stats, error) {
	t.Helper()
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return pipeline.Stats{}, err
	}
	if c, ok := comp.Writer.(interface{ Close() error }); ok {
		defer c.Close()
	}
	return pipeline.RunWithStats(context.Background(), comp, set, nil)
}

func TestE2EGolden(t *testing.T) {
	for _, conc := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			outDir := t.TempDir()
			cfg := baseConfig(input, outDir)
			cfg.Concurrency = conc
			cfg.MaxLines = 3
			stats, err := runPipeline(t, cfg)
			require.NoError(t, err)
			got, err := os.ReadFile(filepath.Join(outDir, "input.txt"))
			require.NoError(t, err)
			assert.Equal(t, golden(t, "output.txt"), string(got))
			assert.Equal(t, int64(18), stats.Lines)
			assert.Equal(t, map[string]int64{"format": 3, "numeral": 2}, stats.LineErrors)
		})
	}
}

func TestE2EStrict(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(input, outDir)
	cfg.Options.Evaluator = json.RawMessage(`{"strict_operators":true,"strict_numerals":true}`)
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"ext":".out"}`, outDir))
	_, err := runPipeline(t, cfg)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(outDir, "input.out"))
	require.NoError(t, err)
	assert.Equal(t, golden(t, "output.strict.txt"), string(got))
}

func TestE2ESidecar(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(input, outDir)
	on := true
	cfg.Sidecar = &on
	_, err := runPipeline(t, cfg)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(outDir, "input.txt.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	var rows []pipeline.SidecarRow
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var row pipeline.SidecarRow
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, sc.Err())
	require.Len(t, rows, 18)
	assert.Equal(t, "MCMXCIV + I", rows[3].Src)
	assert.Equal(t, "One Thousand Nine Hundred Ninety Five", rows[3].Dst)
	assert.Equal(t, "format", rows[8].Status)
	assert.Equal(t, int64(9), rows[8].Line)
	assert.Equal(t, "numeral", rows[13].Status)
}

func TestE2ESqlite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "results.db")
	cfg := baseConfig(input, "")
	cfg.Components.Writer = "sqlite"
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"path":%q}`, db))
	on := true
	cfg.Sidecar = &on
	_, err := runPipeline(t, cfg)
	require.NoError(t, err)

	st, err := wsql.New(&wsql.Options{Path: db})
	require.NoError(t, err)
	defer st.Close()
	lines, err := st.Lines(context.Background(), contract.NormalizeFileID(input))
	require.NoError(t, err)
	require.Len(t, lines, 18)
	assert.Equal(t, "Fifteen Million Nine Hundred Ninety Two Thousand One", lines[16])
}

// 源不存在：整体失败且不写出
func TestE2EMissingInput(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(filepath.Join("files", "missing.txt"), outDir)
	_, err := runPipeline(t, cfg)
	require.ErrorIs(t, err, os.ErrNotExist)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
