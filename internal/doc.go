// Package internal contains helper utilities that are intentionally private
// to refreshguard, currently secure identifier generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public refreshguard API.
//   - Be imported by any package outside the refreshguard module.
package internal
