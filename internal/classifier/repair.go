package classifier

import (
	"strings"

	"github.com/tidwall/gjson"
)

// payloadState tags the outcome of parsing an untrusted model payload.
// Forcing call sites through the tag keeps the repair/degrade path explicit.
type payloadState int

const (
	payloadOK payloadState = iota
	payloadRepaired
	payloadMalformed
)

// sanitizePayload strips markdown fences and surrounding whitespace from
// a raw model response.
func sanitizePayload(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairPayload validates a sanitized payload and, when it looks
// truncated (no closing brace), cuts back to the last complete array
// element and re-closes the structure. Returns the usable JSON and a
// state tag; payloadMalformed means the raw text is unusable.
func repairPayload(s string) (string, payloadState) {
	if s == "" {
		return "", payloadMalformed
	}
	if gjson.Valid(s) {
		return s, payloadOK
	}

	// Truncated mid-array: keep everything up to the last complete
	// element and close the array and the envelope. The last closing
	// brace in a truncated payload is the end of the last complete
	// entry, because entry objects do not nest.
	cut := strings.LastIndex(s, "}")
	if cut == -1 {
		return "", payloadMalformed
	}
	candidate := s[:cut+1] + "]}"
	if gjson.Valid(candidate) {
		return candidate, payloadRepaired
	}
	return "", payloadMalformed
}

// extractArray parses a raw payload, repairs it if needed, and returns
// the named top-level array as JSON text plus the payload state.
func extractArray(raw, field string) (string, payloadState) {
	repaired, state := repairPayload(sanitizePayload(raw))
	if state == payloadMalformed {
		return "", payloadMalformed
	}
	arr := gjson.Get(repaired, field)
	if !arr.IsArray() {
		return "", payloadMalformed
	}
	return arr.Raw, state
}
