package security

import "time"

// TokenClaims carries the household identity baked into an access token.
// UserID is the email-shaped identifier the directory keys on.
type TokenClaims struct {
	UserID  string
	Name    string
	IsHost  bool
	IsAdmin bool
	Exp     time.Time
	Issuer  string
	Subject string
}
