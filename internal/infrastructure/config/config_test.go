package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "secret",
		"SERVICE_ROLE_KEY": "service",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.Port != "8080" || cfg.Mongo.Database != "propspace" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour || cfg.Auth.RefreshTokenTTL != 720*time.Hour {
		t.Fatalf("unexpected token ttls: %+v", cfg.Auth)
	}
	if cfg.ResolveTimeout != 5*time.Second || cfg.Redis.ProfileCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("expected no brokers by default, got %v", cfg.Kafka.Brokers)
	}
	if !cfg.Development() {
		t.Fatalf("expected development by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "secret",
		"SERVICE_ROLE_KEY": "service",
		"ENV":              "production",
		"KAFKA_BROKERS":    "k1:9092,k2:9092",
		"AUTH_RATE_BURST":  "10",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Auth.RateBurst != 10 || cfg.Development() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadWith_RequiresSecrets(t *testing.T) {
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "x"})); err == nil {
		t.Fatalf("expected error without SERVICE_ROLE_KEY")
	}
}

func TestLoadClientWith(t *testing.T) {
	cfg, err := LoadClientWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"PROPSPACE_API_URL": "https://api.example.com/",
	}))
	if err != nil {
		t.Fatalf("LoadClientWith returned error: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIURL)
	}
	if cfg.ResolveTimeout != 10*time.Second || cfg.RefreshMargin != time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
