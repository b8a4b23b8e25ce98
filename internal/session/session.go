// Package session resolves the caller's identity for the typing API. Login
// belongs to the main application; this package reads and refreshes the
// Redis-backed session records that application maintains, and can mint
// records directly for tools and tests.
package session
