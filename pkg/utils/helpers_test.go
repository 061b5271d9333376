package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Kyiv", "kyiv"},
		{"New   York", "new-york"},
		{"  Ivano-Frankivsk  ", "ivano-frankivsk"},
		{"São Paulo", "so-paulo"},
		{"remote (Europe)", "remote-europe"},
		{"???", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.input), "input %q", tc.input)
	}
}

func TestContains(t *testing.T) {
	slice := []string{"a", "b"}
	assert.True(t, Contains(slice, "a"))
	assert.False(t, Contains(slice, "c"))
	assert.False(t, Contains(nil, "a"))
}

func TestGetStringOrDefault(t *testing.T) {
	assert.Equal(t, "fallback", GetStringOrDefault("", "fallback"))
	assert.Equal(t, "value", GetStringOrDefault("value", "fallback"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "2.50s", FormatDuration(2500*time.Millisecond))
	assert.Equal(t, "1.5m", FormatDuration(90*time.Second))
	assert.Equal(t, "2.0h", FormatDuration(2*time.Hour))
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}
