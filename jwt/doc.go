// Package jwt mints and verifies the access and id tokens issued by the local
// identity provider, using ed25519 or HS256 keys with optional key rotation
// by kid and strict issuer, audience and iat validation.
package jwt
