package models

// UserProfile is the authenticated user's profile as returned by GET /user/me.
// The client treats it as display-only data; it is never mutated locally.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Credentials are the login/signup request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
