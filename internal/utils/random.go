package utils

import (
	"crypto/rand"
	"math/big"
)

const digits = "0123456789"

// RandomDigits генерирует криптостойкую строку из n десятичных цифр.
func RandomDigits(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(digits)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = digits[idx.Int64()]
	}
	return string(b), nil
}
