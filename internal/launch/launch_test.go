package launch

import (
	"encoding/base64"
	"testing"
)

func TestDecodeStructuredPayload(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"backend":"https://x"}`))

	cfg := Decode(token)
	if cfg.Backend != "https://x" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "https://x")
	}
}

func TestDecodeRawURLPayload(t *testing.T) {
	// base64 of http://localhost:8080/api/message, the form the host
	// emulator emits.
	cfg := Decode("aHR0cDovL2xvY2FsaG9zdDo4MDgwL2FwaS9tZXNzYWdl")
	if cfg.Backend != "http://localhost:8080/api/message" {
		t.Errorf("Backend = %q, want the emulator URL", cfg.Backend)
	}
}

func TestDecodeURLSafeAlphabet(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"backend":"https://api.example.com"}`))

	cfg := Decode(token)
	if cfg.Backend != "https://api.example.com" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "https://api.example.com")
	}
}

func TestDecodeFailuresYieldEmptyConfig(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"corrupted base64", "!!!not-base64!!!"},
		{"payload without backend", base64.StdEncoding.EncodeToString([]byte(`{"foo":1}`))},
		{"backend is not a URL", base64.StdEncoding.EncodeToString([]byte(`{"backend":"ftp://x"}`))},
		{"plain text payload", base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cfg := Decode(tt.token); cfg.Backend != "" {
				t.Errorf("Decode(%q).Backend = %q, want empty", tt.token, cfg.Backend)
			}
		})
	}
}

func TestDecodeIsIdempotent(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"backend":"https://x"}`))
	if Decode(token) != Decode(token) {
		t.Error("Decode is not idempotent for the same token")
	}
}
