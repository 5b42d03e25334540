package user

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}

	hash, err := HashPassword("s3cret", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected hash")
	}

	if !VerifyPassword("s3cret", salt, hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("did not expect wrong password to verify")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	salt, _ := GenerateSaltHex()
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestHashPasswordSaltMatters(t *testing.T) {
	saltA, _ := GenerateSaltHex()
	saltB, _ := GenerateSaltHex()
	hashA, _ := HashPassword("s3cret", saltA)
	hashB, _ := HashPassword("s3cret", saltB)
	if hashA == hashB {
		t.Fatalf("expected different hashes for different salts")
	}
}
