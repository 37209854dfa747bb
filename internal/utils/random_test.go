package utils

import "testing"

func TestRandomDigits(t *testing.T) {
	code, err := RandomDigits(8)
	if err != nil {
		t.Fatalf("ошибка генерации: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("ожидалась длина 8, получено %d", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("в коде не цифра: %q", code)
		}
	}

	long, err := RandomDigits(30)
	if err != nil {
		t.Fatalf("ошибка генерации: %v", err)
	}
	if len(long) != 30 {
		t.Fatalf("ожидалась длина 30, получено %d", len(long))
	}
}
