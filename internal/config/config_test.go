package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.HTTPAddr)
	}
	if cfg.KafkaTopic != "ride-events" {
		t.Fatalf("unexpected topic: %s", cfg.KafkaTopic)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("unexpected shutdown timeout: %s", cfg.ShutdownTimeout)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("FARE_PER_KM", "2.25")
	t.Setenv("HTTP_READ_TIMEOUT", "2s")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.FarePerKm != 2.25 {
		t.Fatalf("unexpected fare per km: %v", cfg.FarePerKm)
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.ReadTimeout)
	}
}

func TestInvalidEnvAccumulates(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("ESTIMATE_SPEED_KMH", "-4")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error")
	}
}
