package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", "aims", time.Hour, 24*time.Hour)
}

func TestIssuePair_RoundTrip(t *testing.T) {
	iss := newTestIssuer()
	branch := uuid.New()
	sub := Subject{UserID: uuid.New(), Email: "a@x.com", BranchID: &branch}

	pair, err := iss.IssuePair(sub)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token should outlive access token")
	}

	claims, err := iss.Parse(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Parse access: %v", err)
	}
	if claims.UserID != sub.UserID || claims.Email != sub.Email {
		t.Errorf("claims mismatch: %+v", claims)
	}
	if claims.BranchID == nil || *claims.BranchID != branch {
		t.Errorf("branch id not carried: %v", claims.BranchID)
	}

	if _, err := iss.Parse(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Fatalf("Parse refresh: %v", err)
	}
}

func TestParse_WrongTokenType(t *testing.T) {
	iss := newTestIssuer()
	pair, _ := iss.IssuePair(Subject{UserID: uuid.New(), Email: "a@x.com"})

	if _, err := iss.Parse(pair.RefreshToken, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh used as access: got %v, want ErrTokenInvalid", err)
	}
	if _, err := iss.Parse(pair.AccessToken, TokenTypeRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access used as refresh: got %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Expired(t *testing.T) {
	iss := newTestIssuer()
	iss.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	pair, err := iss.IssuePair(Subject{UserID: uuid.New(), Email: "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}

	iss.now = time.Now
	if _, err := iss.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestParse_BadSignature(t *testing.T) {
	pair, _ := newTestIssuer().IssuePair(Subject{UserID: uuid.New(), Email: "a@x.com"})
	other := NewTokenIssuer("other-secret", "aims", time.Hour, time.Hour)

	if _, err := other.Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	pair, _ := NewTokenIssuer("test-secret", "someone-else", time.Hour, time.Hour).
		IssuePair(Subject{UserID: uuid.New(), Email: "a@x.com"})

	if _, err := newTestIssuer().Parse(pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestParse_RejectsNoneAlg(t *testing.T) {
	claims := Claims{
		UserID:    uuid.New(),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "aims",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newTestIssuer().Parse(s, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("got %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	for _, s := range []string{"", "abc", "a.b.c"} {
		if _, err := newTestIssuer().Parse(s, TokenTypeAccess); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Parse(%q) = %v, want ErrTokenInvalid", s, err)
		}
	}
}
