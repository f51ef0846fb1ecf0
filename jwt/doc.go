// Package jwt wraps token signing and verification for the lifecycle engine.
// It issues three shapes of token over one claim set: short-lived access
// tokens, family-scoped refresh tokens, and single-purpose action tokens.
//
// Verification failures map to the package's typed errors so callers never
// inspect library error strings. Kind checks are left to the caller: the
// engine decides which kinds an operation accepts.
package jwt
