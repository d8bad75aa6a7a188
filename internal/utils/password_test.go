package utils

import "testing"

func TestPlainPasswordMode(t *testing.T) {
	m := ParsePasswordMode("")
	if m != PasswordPlain {
		t.Fatalf("mode = %q, want plain", m)
	}
	stored, err := m.StorePassword("s3cret")
	if err != nil || stored != "s3cret" {
		t.Fatalf("StorePassword = %q, %v", stored, err)
	}
	if !m.Matches(stored, "s3cret") {
		t.Error("expected match")
	}
	if m.Matches(stored, "S3cret") {
		t.Error("expected mismatch")
	}
}

func TestBcryptPasswordMode(t *testing.T) {
	m := ParsePasswordMode("BCRYPT")
	if m != PasswordBcrypt {
		t.Fatalf("mode = %q, want bcrypt", m)
	}
	stored, err := m.StorePassword("s3cret")
	if err != nil {
		t.Fatalf("StorePassword: %v", err)
	}
	if stored == "s3cret" {
		t.Fatal("bcrypt mode stored the plaintext")
	}
	if !m.Matches(stored, "s3cret") {
		t.Error("expected match")
	}
	if m.Matches(stored, "wrong") {
		t.Error("expected mismatch")
	}
}
