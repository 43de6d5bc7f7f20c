package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/google/uuid"
)

func TestResolveSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := uuid.New()

	res, err := env.auth.Register(ctx, Registration{Email: "a@x.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatal(err)
	}
	r := env.role(t, "manager", false)
	p := env.permission(t, "roles", "read")
	_ = env.rbac.AssignPermissionToRole(ctx, actor, r.ID, p.ID)
	_ = env.rbac.AssignRoleToUser(ctx, actor, res.User.ID, r.ID)

	sess, err := env.session.ResolveSession(ctx, "Bearer "+res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if sess.UserID != res.User.ID || sess.Email != "a@x.com" {
		t.Errorf("session = %+v", sess)
	}
	if !sess.HasRole("manager") {
		t.Error("session should carry role manager")
	}
	if !sess.HasPermission("roles.read") {
		t.Error("session should carry roles.read")
	}
}

func TestResolveSession_InactiveUserClosesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.auth.Register(ctx, Registration{Email: "a@x.com", Password: "Passw0rd!"})

	if _, err := env.session.ResolveSession(ctx, "Bearer "+res.Tokens.AccessToken); err != nil {
		t.Fatalf("active user: %v", err)
	}

	_, _ = env.store.SetUserActive(ctx, res.User.ID, false)
	if _, err := env.session.ResolveSession(ctx, "Bearer "+res.Tokens.AccessToken); !errors.Is(err, ErrUserInactiveOrMissing) {
		t.Fatalf("deactivated user: got %v, want ErrUserInactiveOrMissing", err)
	}
}

func TestResolveSession_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.auth.Register(ctx, Registration{Email: "a@x.com", Password: "Passw0rd!"})

	expired := auth.NewTokenIssuer(env.cfg.JWTSecret, env.cfg.JWTIssuer, time.Nanosecond, time.Nanosecond)
	stale, _ := expired.IssuePair(auth.Subject{UserID: res.User.ID, Email: "a@x.com"})
	time.Sleep(time.Second)

	ghost, _ := env.tokens.IssuePair(auth.Subject{UserID: uuid.New(), Email: "ghost@x.com"})

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing header", "", ErrUnauthenticated},
		{"wrong scheme", "Basic abc", ErrInvalidToken},
		{"empty bearer", "Bearer ", ErrInvalidToken},
		{"garbage", "Bearer not.a.jwt", ErrInvalidToken},
		{"refresh token", "Bearer " + res.Tokens.RefreshToken, ErrInvalidToken},
		{"expired", "Bearer " + stale.AccessToken, ErrExpiredToken},
		{"unknown user", "Bearer " + ghost.AccessToken, ErrUserInactiveOrMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.session.ResolveSession(ctx, tt.header); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolveSession_CaseInsensitiveScheme(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.auth.Register(ctx, Registration{Email: "a@x.com", Password: "Passw0rd!"})

	if _, err := env.session.ResolveSession(ctx, "bearer "+res.Tokens.AccessToken); err != nil {
		t.Errorf("lowercase scheme: %v", err)
	}
}

func TestResolveOptional(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res, _ := env.auth.Register(ctx, Registration{Email: "a@x.com", Password: "Passw0rd!"})

	if s := env.session.ResolveOptional(ctx, ""); s != nil {
		t.Error("no header should be anonymous")
	}
	if s := env.session.ResolveOptional(ctx, "Bearer junk"); s != nil {
		t.Error("invalid token should be anonymous")
	}
	if s := env.session.ResolveOptional(ctx, "Bearer "+res.Tokens.AccessToken); s == nil || s.UserID != res.User.ID {
		t.Errorf("valid token: %+v", s)
	}
}
