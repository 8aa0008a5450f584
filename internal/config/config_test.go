package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid kv backend config",
			config: Config{
				Port:        "8081",
				DataBackend: "kv",
				DataDir:     t.TempDir(),
				GeminiModel: "gemini-2.5-flash",
			},
			wantErr: false,
		},
		{
			name: "valid sqlite backend config",
			config: Config{
				Port:         "8081",
				DataBackend:  "sqlite",
				SQLiteDBPath: filepath.Join(t.TempDir(), "test.db"),
				GeminiModel:  "gemini-2.5-flash",
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:        "abc",
				DataBackend: "kv",
				DataDir:     t.TempDir(),
				GeminiModel: "gemini-2.5-flash",
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range",
			config: Config{
				Port:        "70000",
				DataBackend: "kv",
				DataDir:     t.TempDir(),
				GeminiModel: "gemini-2.5-flash",
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "invalid data backend",
			config: Config{
				Port:        "8080",
				DataBackend: "redis",
				GeminiModel: "gemini-2.5-flash",
			},
			wantErr:     true,
			errorString: "invalid data backend 'redis': must be one of [kv sqlite]",
		},
		{
			name: "sqlite backend missing database path",
			config: Config{
				Port:        "8080",
				DataBackend: "sqlite",
				GeminiModel: "gemini-2.5-flash",
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name: "missing model name",
			config: Config{
				Port:        "8080",
				DataBackend: "kv",
				DataDir:     t.TempDir(),
			},
			wantErr:     true,
			errorString: "Gemini model name cannot be empty",
		},
		{
			name: "negative delay",
			config: Config{
				Port:        "8080",
				DataBackend: "kv",
				DataDir:     t.TempDir(),
				GeminiModel: "gemini-2.5-flash",
				LoginDelay:  -time.Second,
			},
			wantErr:     true,
			errorString: "invalid login delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_BACKEND", "LOGIN_DELAY", "MUTATE_DELAY", "GEMINI_MODEL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8081" {
		t.Fatalf("default port: %s", cfg.Port)
	}
	if cfg.DataBackend != "kv" {
		t.Fatalf("default backend: %s", cfg.DataBackend)
	}
	if cfg.LoginDelay != 800*time.Millisecond || cfg.MutateDelay != 300*time.Millisecond {
		t.Fatalf("default delays: %v %v", cfg.LoginDelay, cfg.MutateDelay)
	}
	if cfg.GeminiModel == "" {
		t.Fatal("default model must be set")
	}
}
