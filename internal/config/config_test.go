package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 5000 {
		t.Fatalf("expected default port 5000, got %d", cfg.HTTP.Port)
	}
	if cfg.STT.Mode != "mock" || cfg.LLM.Mode != "mock" || cfg.TTS.Mode != "mock" {
		t.Fatalf("expected mock backends by default")
	}
	if cfg.Client.ServerURL != "http://localhost:5000" {
		t.Fatalf("unexpected client server url: %s", cfg.Client.ServerURL)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mathvoice.yaml")
	body := []byte(`
http:
  port: 8090
llm:
  mode: ollama
  endpoint: http://ollama:11434
  model: llama3.2:latest
history:
  retention_mode: persistent
  retention_days: 7
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8090 {
		t.Fatalf("expected port 8090, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.Mode != "ollama" || cfg.LLM.Model != "llama3.2:latest" {
		t.Fatalf("expected ollama llm config, got %+v", cfg.LLM)
	}
	if cfg.History.RetentionMode != "persistent" || cfg.History.RetentionDays != 7 {
		t.Fatalf("expected history overrides, got %+v", cfg.History)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MATHVOICE_HTTP_PORT", "9000")
	t.Setenv("MATHVOICE_CORS_ALLOWED_ORIGINS", "https://one.example, https://two.example")
	t.Setenv("MATHVOICE_LLM_MODE", "openai")
	t.Setenv("MATHVOICE_LLM_API_KEY", "sk-test")
	t.Setenv("MATHVOICE_LLM_TEMPERATURE", "0.2")
	t.Setenv("MATHVOICE_BUS_ENABLED", "true")
	t.Setenv("MATHVOICE_BUS_EMBEDDED", "false")
	t.Setenv("MATHVOICE_BUS_SERVERS", "nats://one:4222,nats://two:4222")
	t.Setenv("MATHVOICE_HISTORY_PATH", "./tmp.db")
	t.Setenv("MATHVOICE_SPEAKER_MODE", "exec")
	t.Setenv("MATHVOICE_SPEAK_COMMAND", "espeak")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Fatalf("expected port override, got %d", cfg.HTTP.Port)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://two.example" {
		t.Fatalf("expected cors override, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.LLM.Mode != "openai" || cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected llm override, got %+v", cfg.LLM)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.LLM.Temperature)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 bus servers, got %v", cfg.Bus.Servers)
	}
	if cfg.History.Path != "./tmp.db" {
		t.Fatalf("expected history path override")
	}
	if cfg.Client.SpeakerMode != "exec" || cfg.Client.SpeakCommand != "espeak" {
		t.Fatalf("expected speaker override, got %+v", cfg.Client)
	}
}

func TestValidateRejectsBadModes(t *testing.T) {
	t.Setenv("MATHVOICE_STT_MODE", "exec")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for exec stt mode without command")
	}
}
