package main

import (
	"testing"
)

func TestLoadTokenConfig(t *testing.T) {
	t.Setenv("ID_TOKEN_SECRET", "s3cret")
	t.Setenv("ID_TOKEN_ISSUER", "https://issuer.example.com")
	t.Setenv("ID_TOKEN_AUDIENCE", "vsd-admin")

	cfg, err := loadTokenConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Secret != "s3cret" || cfg.Issuer != "https://issuer.example.com" || cfg.Audience != "vsd-admin" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadTokenConfig_RequiresSecret(t *testing.T) {
	t.Setenv("ID_TOKEN_SECRET", "")

	if _, err := loadTokenConfig(); err == nil {
		t.Fatal("expected an error without ID_TOKEN_SECRET, got nil")
	}
}
