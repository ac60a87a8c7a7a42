package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStaticSource(t *testing.T) {
	tok, err := StaticSource("abc").Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "abc" {
		t.Errorf("token = %q", tok)
	}

	if _, err := StaticSource("").Token(context.Background()); err == nil {
		t.Error("want error for empty static token")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first-token\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer s.Close()

	tok, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "first-token" {
		t.Errorf("token = %q, want first-token (trimmed)", tok)
	}
}

func TestFileSourceReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer s.Close()

	if err := os.WriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		tok, err := s.Token(context.Background())
		if err == nil && tok == "second" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("token never reloaded, still %q", tok)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFileSourceMissing(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("want error for missing token file")
	}
}

func TestFileSourceEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileSource(path); err == nil {
		t.Fatal("want error for empty token file")
	}
}

// unsignedJWT builds a JWT-shaped token with the given claims and a junk
// signature. Expiry inspection never verifies.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := map[string]any{"alg": "HS256", "typ": "JWT"}
	return fmt.Sprintf("%s.%s.%s", enc(header), enc(claims), base64.RawURLEncoding.EncodeToString([]byte("sig")))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Unix()
	tok := unsignedJWT(t, map[string]any{"sub": "user", "exp": exp})

	got, ok := TokenExpiry(tok)
	if !ok {
		t.Fatal("expiry not found")
	}
	if got.Unix() != exp {
		t.Errorf("expiry = %v, want unix %d", got, exp)
	}
}

func TestTokenExpiryOpaque(t *testing.T) {
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("opaque token should have no expiry")
	}
	tok := unsignedJWT(t, map[string]any{"sub": "user"})
	if _, ok := TokenExpiry(tok); ok {
		t.Error("JWT without exp should have no expiry")
	}
}
