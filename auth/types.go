// Package auth provides authentication for the remote-PKI platform's REST
// discovery endpoint (network.PKIClient's keypair-issuance calls).
package auth

import (
	"net/http"
)

// Authenticator adds credentials to an outgoing REST request.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Type represents the type of authentication.
type Type string

const (
	// AuthTypeNone indicates no authentication is required.
	AuthTypeNone Type = "none"
	// AuthTypeBearer indicates bearer token authentication.
	AuthTypeBearer Type = "bearer"
)
