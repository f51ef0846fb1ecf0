// Package blacklist implements the Redis revocation cache: TTL-keyed
// entries recording jtis (or opaque third-party tokens) that must be treated
// as invalid before their natural expiry.
//
// The cache is a security fast path, not a source of truth. Entries expire
// passively; nothing here retries or reconciles. Unavailability is reported
// as [ErrUnavailable] so the engine can apply its fail-open/fail-closed
// policy instead of guessing.
package blacklist
