// Package api is the typed adapter to the PVault RemoteAPI.
//
// # Overview
//
// HTTPClient speaks the fixed HTTP/JSON contract: doctor authentication,
// prescription listing and upload, patient OTP issuance and verification,
// and the binary artifact download shared by both paths. Every request
// carries an X-Request-ID; a bearer token is attached whenever the injected
// token source yields one. Outgoing calls are paced by a token-bucket
// limiter and bounded by the client timeout.
//
// # Error Handling
//
// Non-2xx responses and transport failures are returned as *Error values
// that unwrap to one of the sentinels ErrUnauthenticated, ErrForbidden,
// ErrNotFound, ErrValidation, ErrUnavailable or ErrUnexpectedStatus. Use
// Message to obtain a user-facing text with a fallback.
package api
