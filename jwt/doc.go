// Package jwt reads access tokens issued by the authentication backend.
//
// The client treats access tokens as opaque bearer credentials. When a token
// happens to be a JWT, the [Reader] extracts its expiry so the refresh
// schedule can track the real deadline, and, when verification keys are
// configured, checks the signature before trusting any claim.
package jwt
