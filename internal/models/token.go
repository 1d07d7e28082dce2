// Package models defines the data types exchanged with the Drivelink storage service.
package models

// TokenPair holds the credential pair issued by the auth endpoints.
// Either field may be empty; tokens are opaque to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// HasAccess reports whether an access token is present.
func (t TokenPair) HasAccess() bool {
	return t.AccessToken != ""
}

// HasRefresh reports whether a refresh token is present.
func (t TokenPair) HasRefresh() bool {
	return t.RefreshToken != ""
}
