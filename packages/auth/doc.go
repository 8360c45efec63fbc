// Package auth adds request authentication to the fetch client.
//
// Schemes are applied by wrapping a Transport, so they run once per attempt
// and see the fully encoded request:
//   - Basic and Bearer set a static Authorization header
//   - AWS signs with Signature Version 4
//   - Digest answers a 401 challenge and replays the request
//
// The oauth2 subpackage provides a Signer backed by a token endpoint.
package auth
