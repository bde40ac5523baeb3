// Package gate implements the navigation gate of the admin panel.
//
// A Gate is built around an injected storage.Store holding the session
// record and the outbound apiclient.Client. Initialize loads the record and,
// when a credential is present, installs the Authorization default header
// on the client so every later backend request carries it. Check is then
// consulted before each navigation commits and returns a Decision: Allow, or
// Redirect to the login path.
//
// # Policies
//
// PolicyLiteral (the default) redirects every navigation while logged out,
// the login path included. PolicyExemptLogin lets logged-out navigations to
// an exempt path (by default only the login path) through. Logged-in
// navigations are always allowed, the login path included.
//
// # Authorization header
//
// The header value is "Basic" immediately followed by the credential's
// authdata, with no separating space. The backend this panel talks to
// expects exactly that form.
package gate
