// Package localidp is a Redis-backed identity.Provider for development,
// tests and the gosession CLI.
//
// Accounts are reachable under every login identifier they were registered
// with (email, phone number, username). Secrets are Argon2id hashes. One-time
// codes for confirmation, password reset, MFA and passwordless sign-in are
// stored hashed with a TTL and an attempt budget, and handed to a [Sender]
// for delivery; [LogSender] writes them to a zerolog logger. Successful
// sign-ins open a provider session and mint JWT access and id tokens plus an
// opaque refresh token. InvalidateSession revokes the session.
//
// A Provider tracks one current session, the way a client SDK instance
// does. Use [Provider.Refresh] to resume a persisted session in a new
// instance.
package localidp
