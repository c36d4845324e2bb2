package battle

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"strings"
)

const (
	revivalCodeLength  = 6
	revivalCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts    = 32
)

// CodeGenerator produces revival codes.
type CodeGenerator func() (string, error)

// GenerateRevivalCode returns 6 random uppercase alphanumeric characters.
func GenerateRevivalCode() (string, error) {
	code := make([]byte, revivalCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(revivalCodeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = revivalCodeCharset[num.Int64()]
	}
	return string(code), nil
}

// uniqueCode regenerates on collision with a code already in use. If gen keeps
// failing it falls back to rnd so a knockout never stalls.
func uniqueCode(gen CodeGenerator, rnd *mrand.Rand, inUse func(string) bool) string {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := gen()
		if err == nil && !inUse(code) {
			return code
		}
	}
	for {
		code := pseudoRandomCode(rnd)
		if !inUse(code) {
			return code
		}
	}
}

func pseudoRandomCode(rnd *mrand.Rand) string {
	code := make([]byte, revivalCodeLength)
	for i := range code {
		code[i] = revivalCodeCharset[rnd.Intn(len(revivalCodeCharset))]
	}
	return string(code)
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
