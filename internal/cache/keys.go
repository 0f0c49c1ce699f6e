package cache

import "fmt"

// PrefixIdempotency namespaces idempotency tokens.
const PrefixIdempotency = "idem:"

// MakeIdempotencyKey creates a cache key for a client supplied idempotency token.
func MakeIdempotencyKey(token string) string {
	return fmt.Sprintf("%s%s", PrefixIdempotency, token)
}
