// Package cache implements the fingerprint-keyed result cache: an
// in-memory TTL/LRU backend by default, with an optional SQLite-backed
// persistent implementation for longer-lived deployments.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/holomesh/cadopt/internal/domain"
)

// Fingerprint computes a stable digest over (tool_name, sorted(parameters)):
// a 256-bit SHA-256 hash, so collisions are cryptographically
// negligible. The returned key always has the form
// cache_prefix||tool_name||":"||hash so invalidate-by-tool can pattern
// match on the cache_prefix||tool_name||":" prefix without parsing the
// hash portion.
func Fingerprint(prefix, toolName string, params domain.ParamMap) string {
	sum := sha256.Sum256([]byte(canonicalize(toolName, params)))
	return prefix + toolName + ":" + hex.EncodeToString(sum[:])
}

// canonicalize produces a byte string that is identical for parameter maps
// that differ only in insertion order: keys sorted, then JSON-encoded as
// an ordered array of {name, kind, num, bool, str} objects (map iteration order in
// Go's encoding/json is already sorted for map keys, but we sort
// explicitly so the contract does not depend on that implementation
// detail surviving a future refactor).
func canonicalize(toolName string, params domain.ParamMap) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	type entry struct {
		Name string  `json:"name"`
		Kind int     `json:"kind"`
		Num  float64 `json:"num"`
		Bool bool    `json:"bool"`
		Str  string  `json:"str"`
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		v := params[name]
		entries = append(entries, entry{Name: name, Kind: int(v.Kind), Num: v.Num, Bool: v.Bool, Str: v.Str})
	}

	payload := struct {
		Tool   string  `json:"tool"`
		Params []entry `json:"params"`
	}{Tool: toolName, Params: entries}

	b, _ := json.Marshal(payload)
	return string(b)
}

// ScopedKey computes the fingerprint the orchestrator uses for Optimize's
// cache lookup, scoped to (tool_name, project_id[:8]). The
// project scope folds into the hashed payload rather than the key's tool
// segment, so the returned key still starts with cache_prefix||tool_name||":"
// and invalidate-by-tool continues to match it by simple prefix.
func ScopedKey(prefix, toolName, projectID string, params domain.ParamMap) string {
	scope := projectID
	if len(scope) > 8 {
		scope = scope[:8]
	}
	sum := sha256.Sum256([]byte(canonicalize(toolName+"|scope:"+scope, params)))
	return prefix + toolName + ":" + hex.EncodeToString(sum[:])
}
