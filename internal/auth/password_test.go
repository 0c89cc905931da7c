package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	b, _ := GeneratePassword(16)
	if len(a) != 16 || a == b {
		t.Errorf("expected two distinct 16-char passwords, got %q and %q", a, b)
	}
	for _, c := range a {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Errorf("unexpected character %q", c)
		}
	}
}
