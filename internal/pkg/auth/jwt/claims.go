package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by chat clients at connection time
// and on history requests.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, used for validity checks.
	jwt.StandardClaims

	// ID is the user identifier. An empty ID never authenticates.
	ID string `json:"id"`

	// Username is informational; display attributes come from the store.
	Username string `json:"username,omitempty"`
}
