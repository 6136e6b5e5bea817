package security

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestArtifactTokenRoundTrip(t *testing.T) {
	token, err := GenerateArtifactToken("s3cret", "card-1", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseArtifactToken("s3cret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.GiftCardID != "card-1" {
		t.Fatalf("unexpected gift card id %q", claims.GiftCardID)
	}
	if _, err = ParseArtifactToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token with wrong secret, got %v", err)
	}
}

func TestArtifactTokenExpired(t *testing.T) {
	token, err := GenerateArtifactToken("s3cret", "card-1", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err = ParseArtifactToken("s3cret", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestGenerateCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{4}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode(4)
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("unexpected code %q", code)
		}
	}
}

func TestGenerateRandomStringLength(t *testing.T) {
	for _, n := range []int{1, 7, 32} {
		s, err := GenerateRandomString(n)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(s) != n {
			t.Fatalf("expected length %d, got %d", n, len(s))
		}
	}
}

func TestLookupDigestNormalizesEmailOnly(t *testing.T) {
	a, err := LookupDigest("k", " Jane@X.com ", "4242")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, _ := LookupDigest("k", "jane@x.com", "4242")
	if a != b {
		t.Fatalf("expected case-insensitive email digest")
	}
	c, _ := LookupDigest("k", "jane@x.com", "4243")
	if a == c {
		t.Fatalf("expected last4 to change digest")
	}
	d, _ := LookupDigest("other", "jane@x.com", "4242")
	if a == d {
		t.Fatalf("expected key to change digest")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %d chars", len(a))
	}
}
