// Package store defines the credential-store contract: the document
// collections holding accounts and token records, exposed as a small set of
// named lookup and mutation methods so the collaborator's surface is
// statically checkable.
//
// Implementations must be safe for concurrent use. DeleteTokenByID is the
// rotation serialization point: it must atomically remove the record and
// report [ErrNotFound] when the record was already consumed, so that of any
// number of concurrent rotations exactly one succeeds.
package store
