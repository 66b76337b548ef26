// Package password implements password hashing and verification.
//
// # Output format
//
// New hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Accounts migrated from the previous deployment carry bcrypt hashes
// ($2a$/$2b$/$2y$). [Hasher] verifies both and reports bcrypt hashes through
// [Hasher.NeedsUpgrade] so the caller can re-hash on the next successful
// login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (reuse,
// signup rules) is enforced by the Engine and the HTTP validators.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other craveAuth package.
//   - Log plaintext passwords.
package password
