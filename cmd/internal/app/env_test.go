package app

import (
	"testing"
	"time"
)

func TestEnvString(t *testing.T) {
	t.Setenv("TELLER_TEST_STR", "  value  ")
	if got := EnvString("TELLER_TEST_STR", "def"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := EnvString("TELLER_TEST_STR_MISSING", "def"); got != "def" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TELLER_TEST_BOOL", "true")
	if !EnvBool("TELLER_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("TELLER_TEST_BOOL", "nonsense")
	if EnvBool("TELLER_TEST_BOOL", false) {
		t.Fatalf("invalid value should fall back to default")
	}
}

func TestEnvInt32(t *testing.T) {
	t.Setenv("TELLER_TEST_INT", "25")
	if got := EnvInt32("TELLER_TEST_INT", 1); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	t.Setenv("TELLER_TEST_INT", "-3")
	if got := EnvInt32("TELLER_TEST_INT", 1); got != 1 {
		t.Fatalf("negative value should fall back to default, got %d", got)
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TELLER_TEST_DUR", "45s")
	if got := EnvDuration("TELLER_TEST_DUR", time.Minute); got != 45*time.Second {
		t.Fatalf("expected 45s, got %s", got)
	}
	t.Setenv("TELLER_TEST_DUR", "-10s")
	if got := EnvDuration("TELLER_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("non-positive value should fall back to default, got %s", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TELLER_HTTP_ADDR", "")
	t.Setenv("TELLER_LOCK_TIMEOUT", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTPAddr)
	}
	if cfg.LockTimeout != 3*time.Second {
		t.Fatalf("unexpected default lock timeout: %s", cfg.LockTimeout)
	}
	if cfg.DBSchema != "teller" {
		t.Fatalf("unexpected default schema: %s", cfg.DBSchema)
	}
}
