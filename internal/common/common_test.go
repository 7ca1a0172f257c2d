package common

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValidatorCollectsFailures(t *testing.T) {
	empty := ""
	err := NewValidator().
		Field("username", "ab", Required, MinLength(3)).
		Field("email", "nope", Email).
		Field("first_name", &empty, MinLength(1)).
		Field("last_name", (*string)(nil), MinLength(1)).
		Field("date_of_birth", "1990-13-01", ISODate).
		Error()

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	v, ok := AsValidationErrors(err)
	if !ok {
		t.Fatal("AsValidationErrors failed")
	}
	want := []string{
		"username: must be at least 3 characters",
		"email: must be a valid email address",
		"first_name: must be at least 1 characters",
		"date_of_birth: must be a date in YYYY-MM-DD format",
	}
	got := v.Messages()
	if len(got) != len(want) {
		t.Fatalf("messages = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidatorPasses(t *testing.T) {
	if err := NewValidator().Field("email", "a@b.co", Required, Email).Error(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppErrorMatching(t *testing.T) {
	err := WrapError(NotFoundf("Order with id %d not found", 7), "get order")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	msg, ok := UserMessage(err)
	if !ok || msg != "Order with id 7 not found" {
		t.Fatalf("UserMessage = %q, %v", msg, ok)
	}
	if WrapError(nil, "x") != nil {
		t.Fatal("WrapError(nil) != nil")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("EXTRACT_TIMEOUT", "30s")
	cfg := LoadConfig()
	dev, err := cfg.Validate()
	if err != nil || !dev || cfg.Auth.SecretKey != DevSecretKey {
		t.Fatalf("Validate = %v, %v, key %q", dev, err, cfg.Auth.SecretKey)
	}
	if cfg.Extract.Timeout != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.Extract.Timeout)
	}

	t.Setenv("ENVIRONMENT", "production")
	if _, err := LoadConfig().Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("production without secret: err = %v", err)
	}

	t.Setenv("ENVIRONMENT", "")
	t.Setenv("NAME_SPLIT_POLICY", "middle")
	if _, err := LoadConfig().Validate(); err == nil {
		t.Fatal("expected error for bad split policy")
	}
}

func TestLoadConfigOCRTuning(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("OCR_PSM", "6")
	t.Setenv("OCR_OEM", "1")
	cfg := LoadConfig()
	if cfg.OCR.PSM != 6 || cfg.OCR.OEM != 1 {
		t.Fatalf("psm/oem = %d/%d", cfg.OCR.PSM, cfg.OCR.OEM)
	}
	if _, err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	t.Setenv("OCR_PSM", "14")
	if _, err := LoadConfig().Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("OCR_PSM=14: err = %v", err)
	}
	t.Setenv("OCR_PSM", "")
	t.Setenv("OCR_OEM", "4")
	if _, err := LoadConfig().Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("OCR_OEM=4: err = %v", err)
	}
}

func TestDatabaseURLFallback(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{DataPath: "/var/lib/orders"}}
	if got := cfg.DatabaseURL(); got != "/var/lib/orders/orders.db" {
		t.Fatalf("DatabaseURL = %q", got)
	}
	cfg.Database.URL = "postgres://u@h/db"
	if got := cfg.DatabaseURL(); got != "postgres://u@h/db" {
		t.Fatalf("DatabaseURL = %q", got)
	}
}

func TestContextUser(t *testing.T) {
	ctx := WithUser(WithRequestID(context.Background(), "req-1"), 42, "ada")
	if id, ok := UserIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("user id = %d, %v", id, ok)
	}
	if UsernameFromContext(ctx) != "ada" || RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("context values lost")
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("user id on empty context")
	}
}
