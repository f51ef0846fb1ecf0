// Package authgate provides a session-credential lifecycle engine: JWT access
// tokens, persisted rotating refresh tokens grouped into families for
// theft/reuse detection, and a Redis-backed revocation cache consulted by the
// authentication guard on every protected request.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the sentinel error set, and value types (TokenPair, Identity,
// MetricsSnapshot). Credential persistence is pluggable: callers inject a
// [store.CredentialStore] (the document store holding accounts and token
// records) and a Redis client for the revocation cache. Connection lifecycle
// for both belongs to the process entry point, never to this package.
//
// # What this package must NOT do
//
//   - Verify passwords or exchange OAuth codes; callers authenticate
//     credentials and hand the engine an account id.
//   - Expose Redis clients, store handles, or claim encodings in its public
//     API beyond the injection points.
//   - Treat the revocation cache as a source of truth: refresh-token validity
//     is decided by the token record's existence and blacklisted flag.
//
// # Consistency contract
//
// Rotation is serialized by the store's delete-then-insert sequence: of any
// number of concurrent rotations of one refresh token, exactly one can delete
// the record and win; the losers observe "not found" or "blacklisted" and
// fail without corrupting state. Family revocation always completes the
// store-side mutation before cache pushes; cache pushes are best-effort
// unless fail-closed is configured.
package authgate
