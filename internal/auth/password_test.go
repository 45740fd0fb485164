package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := CheckPassword(hash, "correct-horse")
	if err != nil || !ok {
		t.Errorf("expected password to match, ok=%v err=%v", ok, err)
	}

	ok, err = CheckPassword(hash, "wrong-horse")
	if err != nil || ok {
		t.Errorf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
	}

	for _, tt := range tests {
		_, err := HashPassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("HashPassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if _, err := CheckPassword("not-a-bcrypt-hash", "whatever"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
