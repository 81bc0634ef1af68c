package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if digest == "pw1" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !CheckPassword("pw1", digest) {
		t.Fatal("correct password should verify")
	}
	if CheckPassword("pw2", digest) {
		t.Fatal("wrong password should not verify")
	}
}

func TestCheckPasswordGarbageDigest(t *testing.T) {
	if CheckPassword("pw1", "not-a-bcrypt-digest") {
		t.Fatal("garbage digest should not verify")
	}
}
