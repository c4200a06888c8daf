// package auth implements the PKCE OAuth flow for the distributor account
// portal and caches tokens so operators do not re-enter credentials on each
// run.
//
// TokenManager is the single entry point: it serves cached access tokens,
// refreshes them shortly before expiry, and falls back to a full login-form
// flow when no usable token remains.
package auth
