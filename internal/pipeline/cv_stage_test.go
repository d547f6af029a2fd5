package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 100))

	s := strings.Repeat("é", 10) // 2 bytes per rune
	got := clip(s, 11)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, strings.Repeat("é", 5), got)
	assert.LessOrEqual(t, len(got), 11)

	assert.True(t, utf8.ValidString(clip("日本語テキスト", 7)))
}
