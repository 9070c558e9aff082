package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.Env != "development" {
		t.Errorf("expected env 'development', got %s", cfg.Env)
	}
	if cfg.WorkerPollInterval != 60*time.Second {
		t.Errorf("expected poll interval 60s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.WorkerBatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.WorkerBatchSize)
	}
	if cfg.MailerDriver != "smtp" {
		t.Errorf("expected mailer driver 'smtp', got %s", cfg.MailerDriver)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAILER_DRIVER", "log")
	t.Setenv("WORKER_POLL_INTERVAL", "5s")
	t.Setenv("FRONTEND_URL", "https://app.hevaul.ai")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.MailerDriver != "log" {
		t.Errorf("expected mailer driver 'log', got %s", cfg.MailerDriver)
	}
	if cfg.WorkerPollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.FrontendURL != "https://app.hevaul.ai" {
		t.Errorf("expected frontend url override, got %s", cfg.FrontendURL)
	}
}

func TestLoadConfig_InvalidMailerDriver(t *testing.T) {
	t.Setenv("MAILER_DRIVER", "carrier-pigeon")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for invalid mailer driver")
	}
}
