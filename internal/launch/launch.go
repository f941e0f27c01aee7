// Package launch decodes the opaque start parameter the chat host passes to
// a mini-app at launch. The parameter is base64 of either a bare backend URL
// or a small JSON payload with a "backend" field; the encoding is a
// deployment convention shared with the backend tooling.
package launch

import (
	"encoding/base64"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Config is the launch configuration carried by the start parameter.
// Backend is empty when the token is absent or undecodable.
type Config struct {
	Backend string
}

// Decode interprets a start parameter. It never fails: malformed tokens are
// logged and yield an empty Config so the caller falls back to the default
// backend URL.
func Decode(token string) Config {
	token = strings.TrimSpace(token)
	if token == "" {
		return Config{}
	}

	payload, ok := decodeBase64(token)
	if !ok {
		log.Debug().Str("token", token).Msg("launch: start parameter is not valid base64")
		return Config{}
	}

	if backend := backendFromPayload(payload); backend != "" {
		return Config{Backend: backend}
	}

	log.Debug().Str("payload", payload).Msg("launch: start parameter payload carries no backend URL")
	return Config{}
}

// decodeBase64 tries the standard and URL-safe alphabets, padded and raw.
// Hosts are not consistent about which variant they emit.
func decodeBase64(token string) (string, bool) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		if data, err := enc.DecodeString(token); err == nil {
			return string(data), true
		}
	}
	return "", false
}

func backendFromPayload(payload string) string {
	payload = strings.TrimSpace(payload)

	if isHTTPURL(payload) {
		return payload
	}

	// Structured payload: {"backend": "https://..."}. gjson tolerates
	// trailing junk and missing fields without erroring.
	if gjson.Valid(payload) {
		backend := strings.TrimSpace(gjson.Get(payload, "backend").String())
		if isHTTPURL(backend) {
			return backend
		}
	}
	return ""
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
