// Package auth holds the credential primitives of the server: password
// hashing, access token signing and verification, and the opaque refresh
// secrets with their lookup digests.
//
// Access tokens are self-contained HMAC-signed JWTs. They are not recorded
// anywhere on the server and therefore cannot be revoked one by one before
// they expire; keeping their lifetime short is the mitigation. Refresh
// tokens are the opposite: random strings with no structure, valid only
// while a matching, unrevoked digest exists in storage.
package auth
