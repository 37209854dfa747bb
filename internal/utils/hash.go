package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// FastHash — детерминированный одноразовый хеш для кодов и токенов
// восстановления. Не для паролей — пароли хешируются bcrypt (password.go).
func FastHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual сравнивает строки за постоянное время.
func ConstantTimeEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
