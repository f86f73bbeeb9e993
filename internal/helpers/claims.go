package helpers

import "github.com/golang-jwt/jwt/v5"

// Claims is what a Greenwich bearer token carries. The subject is the user id;
// the middleware always reloads the user, so nothing else is trusted.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}
