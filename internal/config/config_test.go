package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ACCESS_TOKEN_TTL_HOURS", "")
	t.Setenv("REFRESH_TOKEN_TTL_HOURS", "")
	t.Setenv("ADMIN_ROLE_NAME", "")

	cfg := Load()
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Errorf("access ttl = %v, want 24h", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("refresh ttl = %v, want 168h", cfg.RefreshTokenTTL)
	}
	if cfg.AdminRoleName != "super_admin" {
		t.Errorf("admin role = %q", cfg.AdminRoleName)
	}
	if err := cfg.Validate(zap.NewNop()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_HOURS", "1")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_DEV", "true")

	cfg := Load()
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("access ttl = %v, want 1h", cfg.AccessTokenTTL)
	}
	if cfg.CORSAllowOrigins != "https://a.example,https://b.example" {
		t.Errorf("cors = %q", cfg.CORSAllowOrigins)
	}
	if !cfg.LogDev {
		t.Error("LOG_DEV not applied")
	}
}

func TestLoad_PoolSettings(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("DB_MIN_CONNS", "")
	t.Setenv("DB_MAX_CONN_LIFETIME_MINUTES", "60")

	cfg := Load()
	if cfg.DBMaxConns != 50 || cfg.DBMinConns != 2 {
		t.Errorf("conns = %d/%d, want 2/50", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if cfg.DBMaxConnLifetime != time.Hour {
		t.Errorf("lifetime = %v", cfg.DBMaxConnLifetime)
	}
	if cfg.DBMaxConnIdleTime != 5*time.Minute {
		t.Errorf("idle = %v", cfg.DBMaxConnIdleTime)
	}
}

func TestBootstrapAdmins(t *testing.T) {
	t.Setenv("BOOTSTRAP_ADMIN_EMAILS", " Root@Example.com ,ops@example.com,,")

	cfg := Load()
	if len(cfg.BootstrapAdminEmails) != 2 || cfg.BootstrapAdminEmails[0] != "root@example.com" {
		t.Fatalf("emails = %v", cfg.BootstrapAdminEmails)
	}

	tests := []struct {
		email string
		want  bool
	}{
		{"root@example.com", true},
		{"  ROOT@example.com ", true},
		{"ops@example.com", true},
		{"someone@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := cfg.IsBootstrapAdmin(tt.email); got != tt.want {
			t.Errorf("IsBootstrapAdmin(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}

	t.Setenv("BOOTSTRAP_ADMIN_EMAILS", "")
	if Load().IsBootstrapAdmin("root@example.com") {
		t.Error("unset list must not match")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			JWTSecret:       "s3cret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 2 * time.Hour,
			BcryptCost:      10,
			AdminRoleName:   "super_admin",
			DBMaxConns:      20,
			DBMinConns:      2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTL = 0 }, true},
		{"negative refresh ttl", func(c *Config) { c.RefreshTokenTTL = -time.Second }, true},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 99 }, true},
		{"no admin role", func(c *Config) { c.AdminRoleName = "" }, true},
		{"zero max conns", func(c *Config) { c.DBMaxConns = 0 }, true},
		{"min above max", func(c *Config) { c.DBMinConns = 21 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate(zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
