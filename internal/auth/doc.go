// Package auth implements the core authentication domain: bearer token
// lifecycle (issue, resolve, rotate, revoke), password registration and
// verification, email-bound password resets, signed email verification
// links, and OAuth identity reconciliation against a single local user
// record.
//
// Services in this package depend on narrow storage interfaces and never
// touch HTTP concerns. Plaintext token secrets leave the package exactly
// once, at issue time; only SHA-256 hashes are persisted.
package auth
