package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.Algorithm != "HS256" {
		t.Errorf("expected HS256, got %s", cfg.Auth.Algorithm)
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Errorf("expected 30m access token ttl, got %s", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.ResetStore != ResetStoreMariaDB {
		t.Errorf("expected mariadb reset store, got %s", cfg.Auth.ResetStore)
	}
	if cfg.Auth.SecretKey == "" {
		t.Error("expected dev secret to be filled in")
	}
	if cfg.SMTP.Enabled() {
		t.Error("expected smtp to be disabled without SMTP_HOST")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SECRET_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing SECRET_KEY in production")
	}

	t.Setenv("SECRET_KEY", "too-short")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for short SECRET_KEY in production")
	}
}

func TestLoad_RejectsUnknownAlgorithm(t *testing.T) {
	t.Setenv("ALGORITHM", "RS256")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "ALGORITHM") {
		t.Fatalf("expected ALGORITHM error, got %v", err)
	}
}

func TestLoad_AlgorithmIsCaseInsensitive(t *testing.T) {
	t.Setenv("ALGORITHM", "hs512")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.Algorithm != "HS512" {
		t.Errorf("expected HS512, got %s", cfg.Auth.Algorithm)
	}
}

func TestLoad_RejectsUnknownResetStore(t *testing.T) {
	t.Setenv("RESET_TOKEN_STORE", "mongo")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown reset store")
	}
}

func TestLoad_AccessTokenMinutes(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.AccessTokenTTL != 45*time.Minute {
		t.Errorf("expected 45m, got %s", cfg.Auth.AccessTokenTTL)
	}
}

func TestDSN_BuildsFromFields(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss", Name: "notes"}

	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db:3306)") {
		t.Errorf("expected default port in DSN, got %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime in DSN, got %s", dsn)
	}
	if strings.Contains(dsn, "multiStatements") {
		t.Errorf("shared pool DSN must not allow multi statements, got %s", dsn)
	}
}

func TestMigrationDSN_EnablesMultiStatements(t *testing.T) {
	for name, d := range map[string]DatabaseConfig{
		"fields":   {Host: "db", User: "u", Password: "p@ss", Name: "notes"},
		"override": {dsnOverride: "x:y@tcp(other:3307)/z?parseTime=true"},
	} {
		t.Run(name, func(t *testing.T) {
			dsn, err := d.MigrationDSN()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(dsn, "multiStatements=true") {
				t.Errorf("expected multiStatements in migration DSN, got %s", dsn)
			}
			if strings.Contains(d.DSN(), "multiStatements") {
				t.Errorf("DSN must stay single-statement, got %s", d.DSN())
			}
		})
	}

	bad := DatabaseConfig{dsnOverride: "not a dsn"}
	if _, err := bad.MigrationDSN(); err == nil {
		t.Error("expected error for malformed DSN")
	}
}

func TestDSN_OverrideWins(t *testing.T) {
	d := DatabaseConfig{Host: "db", dsnOverride: "x:y@tcp(other:3307)/z"}
	if got := d.DSN(); got != "x:y@tcp(other:3307)/z" {
		t.Errorf("expected override DSN, got %s", got)
	}
}
