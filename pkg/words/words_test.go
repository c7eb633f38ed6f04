package words

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "Zero"},
		{-5, "Negative Five"},
		{1, "One"},
		{15, "Fifteen"},
		{19, "Nineteen"},
		{20, "Twenty"},
		{21, "Twenty One"},
		{40, "Forty"},
		{99, "Ninety Nine"},
		{100, "One Hundred"},
		{101, "One Hundred One"},
		{110, "One Hundred Ten"},
		{999, "Nine Hundred Ninety Nine"},
		{1000, "One Thousand"},
		{1001, "One Thousand One"},
		{1994, "One Thousand Nine Hundred Ninety Four"},
		{3999, "Three Thousand Nine Hundred Ninety Nine"},
		{20000, "Twenty Thousand"},
		{1000000, "One Million"},
		{1000001, "One Million One"},
		{2000300, "Two Million Three Hundred"},
		{-1000000, "Negative One Million"},
		{1234567890, "One Billion Two Hundred Thirty Four Million Five Hundred Sixty Seven Thousand Eight Hundred Ninety"},
		{999999999999, "Nine Hundred Ninety Nine Billion Nine Hundred Ninety Nine Million Nine Hundred Ninety Nine Thousand Nine Hundred Ninety Nine"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Render(tt.in), "Render(%d)", tt.in)
	}
}

// 零组不产生量级词，也不留多余空格。
func TestRenderZeroChunks(t *testing.T) {
	got := Render(5_000_000_007)
	assert.Equal(t, "Five Billion Seven", got)
	assert.NotContains(t, got, "  ")
	assert.NotContains(t, got, "Million")
	assert.NotContains(t, got, "Thousand")
}

// 超过 Billion 的组没有量级词。
func TestRenderBeyondBillion(t *testing.T) {
	assert.Equal(t, "Two", Render(2_000_000_000_000))
	assert.Equal(t, "Two Three Billion", Render(2_003_000_000_000))
}

func TestRenderMinInt64(t *testing.T) {
	got := Render(math.MinInt64)
	assert.True(t, strings.HasPrefix(got, "Negative Nine "), got)
	assert.False(t, strings.HasSuffix(got, " "))
}

func TestChunk(t *testing.T) {
	if d := cmp.Diff([]string{"Seven", "Hundred", "Twelve"}, Chunk(712)); d != "" {
		t.Fatalf("Chunk(712) 差异 (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"Three", "Hundred", "Forty"}, Chunk(340)); d != "" {
		t.Fatalf("Chunk(340) 差异 (-want +got):\n%s", d)
	}
	assert.Nil(t, Chunk(0))
	assert.Nil(t, Chunk(1000))
}

func TestScale(t *testing.T) {
	assert.Equal(t, "", Scale(0))
	assert.Equal(t, "Billion", Scale(3))
	assert.Equal(t, "", Scale(4))
	assert.Equal(t, "", Scale(-1))
}

func BenchmarkRender(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Render(int64(i) * 7919)
	}
}
