package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Hour)

	token, err := m.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", claims.UserID)
	}

	if _, err := m.Generate(""); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Hour)
	other := NewJWTManager("another-secret-987654", time.Hour)
	expired := NewJWTManager("test-secret-0123456789", -time.Minute)

	foreign, _ := other.Generate("user-1")
	stale, _ := expired.Generate("user-1")

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"expired":      stale,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
