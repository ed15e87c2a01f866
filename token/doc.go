// Package token provides Redis-backed persistence for rotating refresh-token
// records and the family pointer cache.
//
// # Binary encoding
//
// Records are stored in Redis as a compact binary format with the lifecycle
// state at a fixed offset, so the conditional rotation Lua script can reject
// writes against already-terminal records without decoding the full blob.
//
// # Architecture boundaries
//
// This package owns the [Store] (authoritative records), the [PointerCache]
// (best-effort "freshest token" hint), and the [Token] model. It does NOT
// decide when a rotation is legitimate, detect replays, or cascade family
// revocation on theft; that policy belongs to the Engine.
//
// # What this package must NOT do
//
//   - Import refreshguard or jwt (no upward imports).
//   - Generate token or family identifiers.
//   - Delete records explicitly; record lifetime is owned by the Redis TTL.
package token
