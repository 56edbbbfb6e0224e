/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	for _, length := range []int{4, 6, 12} {
		g := NewCodeGenerator(length)
		for range 100 {
			code, err := g.NewCode()
			require.NoError(t, err)
			assert.True(t, ValidCode(code, length), "invalid code %q", code)
		}
	}

	code, err := NewCodeGenerator(0).NewCode()
	require.NoError(t, err)
	assert.Len(t, code, DefaultCodeLength)
}

func TestCodeAlphabetAvoidsLookalikes(t *testing.T) {
	for _, c := range "01IO" {
		assert.False(t, strings.ContainsRune(CodeAlphabet, c), "alphabet contains %q", c)
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC234", true},
		{"ABC23", false},
		{"ABC2345", false},
		{"ABC23O", false},
		{"abc234", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCode(tt.code, 6), tt.code)
	}

	assert.True(t, ValidCode(NormalizeCode("  abc234 "), 6))
}
