package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
auth:
  jwt_access_ttl: 20m
  login_max_attempts: 7
payments:
  yookassa:
    shop_id: shop-123
  sberbank:
    installment_min: 500000
jobs:
  reconcile_interval: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.JWTAccessTTL != 20*time.Minute {
		t.Fatalf("unexpected access ttl: %s", cfg.Auth.JWTAccessTTL)
	}
	if cfg.Auth.LoginMaxAttempts != 7 {
		t.Fatalf("unexpected login max attempts: %d", cfg.Auth.LoginMaxAttempts)
	}
	if cfg.Payments.YooKassa.ShopID != "shop-123" {
		t.Fatalf("unexpected yookassa shop id: %s", cfg.Payments.YooKassa.ShopID)
	}
	if cfg.Payments.Sberbank.InstallmentMin != 500000 {
		t.Fatalf("unexpected sberbank installment min: %d", cfg.Payments.Sberbank.InstallmentMin)
	}
	if cfg.Jobs.ReconcileInterval != 90*time.Second {
		t.Fatalf("unexpected reconcile interval: %s", cfg.Jobs.ReconcileInterval)
	}

	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("http read timeout default should stay 5s, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Payments.Sberbank.InstallmentMax != 30000000 {
		t.Fatalf("sberbank installment max default should stay 30000000")
	}
	if cfg.Auth.LoginWindow != 15*time.Minute {
		t.Fatalf("login window default should stay 15m, got %s", cfg.Auth.LoginWindow)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("unexpected default env: %s", cfg.Env)
	}
	if cfg.Auth.RefreshTTL != 720*time.Hour {
		t.Fatalf("unexpected default refresh ttl: %s", cfg.Auth.RefreshTTL)
	}
	if cfg.Bot.LinkCodeTTL != 15*time.Minute {
		t.Fatalf("unexpected default link code ttl: %s", cfg.Bot.LinkCodeTTL)
	}
	if cfg.Jobs.ReconcileBatch != 50 {
		t.Fatalf("unexpected default reconcile batch: %d", cfg.Jobs.ReconcileBatch)
	}
}

func TestLoadEnvOverridesWinOverYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("YOOKASSA_SHOP_ID", "env-shop")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
payments:
  yookassa:
    shop_id: yaml-shop
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env override should win, got %s", cfg.HTTP.Addr)
	}
	if cfg.Payments.YooKassa.ShopID != "env-shop" {
		t.Fatalf("env override should win, got %s", cfg.Payments.YooKassa.ShopID)
	}
}

func TestLoadRejectsDefaultJWTSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when auth.jwt_secret is unset in production")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"LOGIN_MAX_ATTEMPTS",
		"LOGIN_WINDOW",
		"SMTP_HOST",
		"SMTP_PORT",
		"SMTP_USERNAME",
		"SMTP_PASSWORD",
		"SMTP_FROM",
		"BOT_TOKEN",
		"BOT_LINK_CODE_TTL",
		"PAYMENTS_RETURN_URL",
		"YOOKASSA_SHOP_ID",
		"YOOKASSA_SECRET_KEY",
		"YOOKASSA_WEBHOOK_SECRET",
		"YOOKASSA_BASE_URL",
		"SBERBANK_USERNAME",
		"SBERBANK_PASSWORD",
		"SBERBANK_WEBHOOK_SECRET",
		"SBERBANK_BASE_URL",
		"JOBS_RECONCILE_INTERVAL",
		"JOBS_RECONCILE_MIN_AGE",
		"JOBS_RECONCILE_BATCH",
		"JOBS_DEADLINE_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
