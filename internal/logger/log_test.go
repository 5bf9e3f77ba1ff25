package logger

import (
	"log/slog"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abc", Prefix("abc", 10))
	assert.Equal(t, "ab...", Prefix("abcdef", 2))
	assert.Equal(t, "h...", Prefix("héllo", 2))
	assert.Equal(t, "", Prefix("", 5))
}

func TestPrefixNeverSplitsRunes(t *testing.T) {
	s := "aééééé€€€"
	for n := 0; n < len(s); n++ {
		got := Prefix(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d: %q", n, got)
		assert.NotContains(t, got, "\uFFFD", "n=%d", n)
	}
	assert.Equal(t, "aééééé...", Prefix(s, 13))
	assert.Equal(t, "aééééé€...", Prefix(s, 16))
	// a real replacement character in the input is kept
	assert.Equal(t, "\uFFFDx...", Prefix("\uFFFDxyz", 4))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
