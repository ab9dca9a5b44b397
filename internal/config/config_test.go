package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "STATUS_PORT",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
		"AI_RESPONDER_ENABLED", "AI_RESPONDER_HISTORY_LIMIT",
		"SPEECH_BACKEND", "SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_TTS_SPEED",
		"INTERVIEW_SCRIPT_VARIANT", "INTERVIEW_SCRIPT_PATH", "INTERVIEW_MAX_DURATION",
	} {
		// Setenv 负责在测试结束后恢复原值
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Server.StatusAddr != ":5000" {
		t.Errorf("status addr = %q, want :5000", cfg.Server.StatusAddr)
	}
	if cfg.AI.Enabled() {
		t.Error("AI should be disabled without credentials")
	}
	if cfg.AI.Temperature != nil || cfg.AI.MaxTokens != nil {
		t.Error("optional AI parameters should stay nil")
	}
	if cfg.AI.HistoryLimit != 6 {
		t.Errorf("history limit = %d, want 6", cfg.AI.HistoryLimit)
	}
	if cfg.Speech.Backend != "auto" || cfg.Speech.Enabled() {
		t.Errorf("unexpected speech config: %+v", cfg.Speech)
	}
	if cfg.Speech.TTSSpeed != 1.0 {
		t.Errorf("tts speed = %v", cfg.Speech.TTSSpeed)
	}
	if cfg.Interview.Variant != "default" {
		t.Errorf("variant = %q", cfg.Interview.Variant)
	}
	if cfg.Interview.MaxDuration != 30*time.Minute {
		t.Errorf("max duration = %v", cfg.Interview.MaxDuration)
	}
}

func TestLoadServerAddresses(t *testing.T) {
	cases := []struct {
		port    string
		want    string
		wantErr bool
	}{
		{port: "9090", want: ":9090"},
		{port: ":9090", want: ":9090"},
		{port: "127.0.0.1:9090", want: "127.0.0.1:9090"},
		{port: "90 90", wantErr: true},
	}

	for _, tc := range cases {
		clearEnv(t)
		t.Setenv("STATUS_PORT", tc.port)

		cfg, err := Load()
		if tc.wantErr {
			if err == nil {
				t.Errorf("STATUS_PORT=%q: expected error", tc.port)
			}
			continue
		}
		if err != nil {
			t.Fatalf("STATUS_PORT=%q: %v", tc.port, err)
		}
		if cfg.Server.StatusAddr != tc.want {
			t.Errorf("STATUS_PORT=%q: got %q, want %q", tc.port, cfg.Server.StatusAddr, tc.want)
		}
	}
}

func TestLoadInvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_TEMPERATURE", "warm")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestSpeechCredentialFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("ARK_API_KEY", "ark-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Speech.AccessToken != "ark-key" {
		t.Errorf("access token = %q, want ark-key", cfg.Speech.AccessToken)
	}
	if !cfg.Speech.Enabled() {
		t.Error("speech should be enabled")
	}

	model := cfg.Speech.Model()
	if model.AppID != "app" || model.TTSVoice != "en_default" || model.ASRLanguage != "en-US" {
		t.Errorf("unexpected speech model config: %+v", model)
	}
}

func TestAIConfigOptionalParameters(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_MODEL", "doubao")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_TEMPERATURE", "0.3")
	t.Setenv("ARK_MAX_TOKENS", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AI.Enabled() {
		t.Fatal("AI should be enabled")
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.3 {
		t.Errorf("temperature = %v", cfg.AI.Temperature)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 120 {
		t.Errorf("max tokens = %v", cfg.AI.MaxTokens)
	}
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	if _, err := (AIConfig{}).NewChatModel(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}
