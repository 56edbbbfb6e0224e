/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// CodeAlphabet leaves out characters that are easy to confuse when read aloud.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultCodeLength = 6
)

// CodeGenerator produces random room codes. It does not check for
// collisions; the registry does that under its own lock.
type CodeGenerator interface {
	NewCode() (string, error)
}

type randomCodes struct {
	length int
}

// NewCodeGenerator returns a crypto/rand backed generator of codes with the given length.
func NewCodeGenerator(length int) CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return randomCodes{length: length}
}

func (g randomCodes) NewCode() (string, error) {
	max := big.NewInt(int64(len(CodeAlphabet)))

	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// NormalizeCode cleans up a code typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code could have come from a generator of the given length.
func ValidCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
