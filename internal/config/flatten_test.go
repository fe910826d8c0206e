package config

import (
	"testing"
)

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"api": map[string]any{
			"base_url": "https://api.example.test/v1",
			"api_key":  "key-123",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["api.base_url"] != "https://api.example.test/v1" {
		t.Errorf("expected api.base_url, got %v", got["api.base_url"])
	}
	if got["api.api_key"] != "key-123" {
		t.Errorf("expected api.api_key=key-123, got %v", got["api.api_key"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(got) != 3 {
		t.Errorf("expected 3 keys, got %d", len(got))
	}
}

func TestFlatten_DeeplyNested(t *testing.T) {
	m := map[string]any{
		"artifactory": map[string]any{
			"source": map[string]any{
				"repo": "maven-local",
			},
		},
	}
	got := Flatten(m)
	if got["artifactory.source.repo"] != "maven-local" {
		t.Errorf("expected artifactory.source.repo=maven-local, got %v", got["artifactory.source.repo"])
	}
	if len(got) != 1 {
		t.Errorf("expected 1 key, got %d", len(got))
	}
}

func TestFlatten_EmptyNestedMap(t *testing.T) {
	got := Flatten(map[string]any{"a": map[string]any{}})
	if len(got) != 0 {
		t.Errorf("expected 0 keys (empty nested map produces nothing), got %d", len(got))
	}
}

func TestFlatten_KeepsSlicesAsLeaves(t *testing.T) {
	m := map[string]any{
		"knowledge": map[string]any{
			"extensions": []any{".md", ".markdown"},
		},
	}
	got := Flatten(m)
	exts, ok := got["knowledge.extensions"].([]any)
	if !ok || len(exts) != 2 {
		t.Fatalf("expected extensions slice leaf, got %#v", got["knowledge.extensions"])
	}
}

func TestUnflatten_Nested(t *testing.T) {
	flat := map[string]any{
		"poll.interval_seconds": 10.0,
		"poll.message_window":   5.0,
		"log_level":             "info",
	}
	got := Unflatten(flat)
	poll, ok := got["poll"].(map[string]any)
	if !ok {
		t.Fatalf("expected poll to be map, got %T", got["poll"])
	}
	if poll["interval_seconds"] != 10.0 {
		t.Errorf("expected poll.interval_seconds=10, got %v", poll["interval_seconds"])
	}
	if poll["message_window"] != 5.0 {
		t.Errorf("expected poll.message_window=5, got %v", poll["message_window"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"output_dir": "/tmp/out",
		"notify": map[string]any{
			"telegram": map[string]any{
				"token":   "bot-token-abc",
				"chat_id": 42.0,
			},
		},
	}

	restored := Unflatten(Flatten(original))

	if restored["output_dir"] != "/tmp/out" {
		t.Errorf("output_dir mismatch: %v", restored["output_dir"])
	}
	tg := restored["notify"].(map[string]any)["telegram"].(map[string]any)
	if tg["token"] != "bot-token-abc" {
		t.Errorf("notify.telegram.token mismatch: %v", tg["token"])
	}
	if tg["chat_id"] != 42.0 {
		t.Errorf("notify.telegram.chat_id mismatch: %v", tg["chat_id"])
	}
}

func TestMaskSecrets(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"api key", "api.api_key", "sk-test123456", "***3456"},
		{"source password", "artifactory.source.password", "hunter2-secret", "***cret"},
		{"target password", "artifactory.target.password", "tok-9999", "***9999"},
		{"telegram token", "notify.telegram.token", "123456:ABCdefGHIjkl", "***Ijkl"},
		{"empty secret", "api.api_key", "", ""},
		{"short secret", "api.api_key", "ab", "***ab"},
		{"exactly four", "api.api_key", "abcd", "***abcd"},
		{"not a secret", "artifactory.source.user", "svc-user", "svc-user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskSecrets(map[string]any{tt.key: tt.value})
			if got[tt.key] != tt.want {
				t.Errorf("MaskSecrets(%s=%v) = %v, want %v", tt.key, tt.value, got[tt.key], tt.want)
			}
		})
	}
}

func TestIsSecretKey(t *testing.T) {
	for _, key := range []string{"api.api_key", "artifactory.source.password", "artifactory.target.password", "notify.telegram.token"} {
		if !IsSecretKey(key) {
			t.Errorf("expected %s to be secret", key)
		}
	}
	for _, key := range []string{"api.base_url", "artifactory.source.user", "notify.telegram.chat_id", "api"} {
		if IsSecretKey(key) {
			t.Errorf("expected %s not to be secret", key)
		}
	}
}

func TestSecretKeysAreConfigKeys(t *testing.T) {
	known := schema()
	if len(secretKeys()) != 4 {
		t.Errorf("expected 4 secret keys, got %v", secretKeys())
	}
	for key := range secretKeys() {
		if _, ok := known[key]; !ok {
			t.Errorf("secret key %s is not a config key", key)
		}
	}
}
