// Package middleware exposes the HTTP adapter for the authgate
// authentication guard.
//
// # Guards
//
//   - [Guard] — runs the engine's full check ladder on every request.
//
// The guard reads the Authorization header, binds the request's User-Agent
// and remote address into the context, calls Engine.Authenticate, and
// injects the resulting identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis or the credential store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from
//     Engine.Authenticate.
package middleware
