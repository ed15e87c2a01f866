// Package refreshguard provides a rotating opaque refresh-token engine with
// family-based theft detection, Redis-backed record storage, and cascading
// revocation on replay.
//
// Every login mints a new token family. Each refresh exchanges the presented
// token for a freshly minted child in the same family and retires the parent.
// Presenting a token that was already rotated away is treated as evidence of
// credential theft: the whole family is revoked and the caller is forced to
// re-authenticate.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// refreshguard is the public surface. It exposes [Engine], [Builder],
// [Config], sentinel errors, and value types (AuditEvent, MetricsSnapshot).
// Persistence lives in the token sub-package; identifier generation lives
// under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Verify user identities or passwords ([IdentityStore] is the caller's).
//   - Mint or parse access tokens ([AccessTokenIssuer] is the caller's; a
//     default implementation ships in the jwt sub-package).
//   - Expose Redis clients or record encoding details in its public API.
package refreshguard
