// Package password hashes the secrets held by the local identity provider
// with Argon2id.
//
// Hashes use the PHC string layout
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// and carry their own parameters, so a hasher can verify anything written
// by an older configuration. [Argon2.NeedsUpgrade] tells the provider when
// to re-hash after a successful sign-in.
//
// Plaintext secrets are never stored or logged here.
package password
