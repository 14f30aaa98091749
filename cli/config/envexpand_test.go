package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHATKIT_LOCATOR", "v1:us1:abc")
	t.Setenv("CHATKIT_EMPTY", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "instance_locator: ${CHATKIT_LOCATOR}", "instance_locator: v1:us1:abc"},
		{"unset", "token: ${CHATKIT_UNSET_12345}", "token: "},
		{"default when unset", "level: ${CHATKIT_UNSET_12345:-info}", "level: info"},
		{"default ignored when set", "id: ${CHATKIT_LOCATOR:-none}", "id: v1:us1:abc"},
		{"default when empty", "level: ${CHATKIT_EMPTY:-warn}", "level: warn"},
		{"several", "redis://${REDIS_HOST}:${REDIS_PORT}/0", "redis://cache:6380/0"},
		{"plain", "no variables here", "no variables here"},
		{"bare dollar", "price: $5", "price: $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_ConfigDocument(t *testing.T) {
	t.Setenv("CHATKIT_TOKEN", "tok-123")
	t.Setenv("HOOK_SECRET", "s3cret")

	input := `token: ${CHATKIT_TOKEN}
adapter:
  type: webhook
  url: ${HOOK_URL:-http://localhost:9000/hook}
  secret: ${HOOK_SECRET}`

	got := ExpandEnv(input)
	want := `token: tok-123
adapter:
  type: webhook
  url: http://localhost:9000/hook
  secret: s3cret`

	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
