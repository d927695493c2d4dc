// Package sdk is the client runtime of the attendance platform.
//
// A Manager owns the session: it restores stored credentials optimistically,
// validates them in the background, signs users in and out and reacts to
// session-expired notifications published on a Bus. A Policy turns a session
// snapshot and route metadata into a Decision, and a Gate combines both for
// route guards, refreshing profile completeness when a screen depends on it.
//
// Client is the HTTP implementation of API. Its authenticated calls read the
// bearer token from a CredentialStore on every request and publish on the
// Bus when the server answers 401.
package sdk
