package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Body fields that carry the client key. They are excluded from the request
// hash so a key sent in the body or in the header hashes the same.
var keyFields = []string{"idempotency_key", "idempotencyKey"}

// HeaderName is the request header carrying the client key
const HeaderName = "Idempotency-Key"

// ReplayHeader is set on replayed responses
const ReplayHeader = "Idempotent-Replayed"

// ExtractKey returns the client key from the body, falling back to the
// header. The result is trimmed.
func ExtractKey(body map[string]any, header string) string {
	for _, f := range keyFields {
		if v, ok := body[f]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return strings.TrimSpace(header)
}

// HashRequest returns the hex sha256 of the canonical JSON form of payload.
// Object keys are sorted and the key fields are dropped.
func HashRequest(payload any) (string, error) {
	tree, err := normalize(payload)
	if err != nil {
		return "", err
	}
	if m, ok := tree.(map[string]any); ok {
		for _, f := range keyFields {
			delete(m, f)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return "", fmt.Errorf("encode request for hashing: %w", err)
	}
	sum := sha256.Sum256(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:]), nil
}

// normalize round-trips payload through JSON so structs and maps with the
// same content produce the same tree. Numbers are kept verbatim.
func normalize(payload any) (any, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return map[string]any{}, nil
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request for hashing: %w", err)
		}
		raw = b
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode request for hashing: %w", err)
	}
	return tree, nil
}
