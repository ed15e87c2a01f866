// Package jwt provides the default access-token issuer paired with
// refreshguard's rotating refresh tokens.
//
// # Architecture boundaries
//
// This package owns signing and verification of short-lived bearer
// credentials. The rotation engine never imports it: the composing layer
// wires an [Issuer] next to the engine around login and refresh.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import refreshguard or token.
//   - Carry refresh-token state inside access-token claims.
package jwt
