// Package authz defines who may do what inside a collaboration room.
//
// The caller identity is resolved once at the service boundary and passed to
// every operation as a CallerIdentity value. Policy evaluation returns a
// Decision with a reason code so transports can log why a call was refused;
// Require converts a denial into a display-safe platform error.
package authz
