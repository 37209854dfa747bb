package utils

import "testing"

func TestFastHash(t *testing.T) {
	h1 := FastHash("12345678")
	h2 := FastHash("12345678")
	if h1 != h2 {
		t.Fatal("хеш должен быть детерминированным")
	}
	if len(h1) != 64 {
		t.Fatalf("ожидался hex sha256 длиной 64, получено %d", len(h1))
	}
	if FastHash("12345679") == h1 {
		t.Fatal("разные входы не должны давать одинаковый хеш")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Fatal("одинаковые строки должны совпадать")
	}
	if ConstantTimeEqual("abc", "abd") {
		t.Fatal("разные строки не должны совпадать")
	}
	if ConstantTimeEqual("abc", "abcd") {
		t.Fatal("строки разной длины не должны совпадать")
	}
}
