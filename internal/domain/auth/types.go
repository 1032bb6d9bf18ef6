package auth

import "time"

// Config drives the edge authentication gate. There is exactly one
// allowed principal (the ranch operator); there is no user database.
type Config struct {
	Enabled      bool
	Secret       string
	TokenTTL     time.Duration
	IssuerURL    string
	OIDCClientID string
	AllowedEmail string
}

// TokenRequest carries the pre-shared operator key used to mint a
// session token. The key is compared against Config.Secret, the same
// secret that signs the issued token; there is no separate operator key.
type TokenRequest struct {
	OperatorKey string `json:"operatorKey"`
}

// TokenResponse returns the signed bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are extracted from a validated bearer token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}
