package models

// User is the profile document behind an authenticated identity.
// The username is the unique handle friends search by.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Bio         string `json:"bio,omitempty"`
	IsOnline    bool   `json:"isOnline,omitempty"`
}
