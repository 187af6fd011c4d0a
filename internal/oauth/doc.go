// Package oauth implements the ClickUp OAuth2 authorization-code exchange.
//
// The flow is: /oauth/authorize stores a one-time state nonce (10 minute
// TTL) and redirects to the ClickUp consent page; /oauth/callback consumes
// the nonce (delete-before-exchange enforces single use), exchanges the
// code for an access token, resolves the authorized user as the storage key
// (falling back to a fixed default key), and persists the token encrypted
// with AES-256-GCM under both keys for about a year. /oauth/status and
// /oauth/logout report and clear the stored credential.
//
// A stored token that fails decryption is treated as absent rather than as
// an error, so a rotated encryption key degrades to "re-authenticate".
package oauth
