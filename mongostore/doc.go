// Package mongostore persists accounts and refresh tokens in MongoDB.
//
// Each role has its own collection (clients, vendors, admins) with a unique
// index on email. Refresh tokens live in one collection keyed by the
// SHA-256 of the token; a TTL index on expiresAt lets the server drop stale
// records. Use [Connect] to open a database and [EnsureIndexes] once at
// startup.
package mongostore
