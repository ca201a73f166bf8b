package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

var resetCodeSpan = big.NewInt(900000)

// GenerateResetCode returns a uniformly random six digit code in [100000, 999999].
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpan)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func HashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
