package utils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
)

func TestJwtValidateRoundTrip(t *testing.T) {
	claim := SessionClaim{
		StandardClaims: jwt.StandardClaims{
			Subject:   "clerk_user_abc",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claim).SignedString(jwtSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	token, err := JwtValidate(signed)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	if !token.Valid {
		t.Fatalf("expected valid token")
	}
	parsed, ok := token.Claims.(*SessionClaim)
	if !ok || parsed.Subject != "clerk_user_abc" {
		t.Fatalf("unexpected claims: %+v", token.Claims)
	}
}

func TestJwtValidateRejectsWrongKey(t *testing.T) {
	claim := SessionClaim{
		StandardClaims: jwt.StandardClaims{Subject: "clerk_user_abc"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claim).SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := JwtValidate(signed); err == nil {
		t.Fatalf("expected validation failure for wrong signing key")
	}
}

func TestJwtValidateRejectsWrongAlgorithm(t *testing.T) {
	// alg=none style tokens must never pass.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &SessionClaim{
		StandardClaims: jwt.StandardClaims{Subject: "clerk_user_abc"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := JwtValidate(unsigned); err == nil {
		t.Fatalf("expected validation failure for alg=none token")
	}
}
