/*
Package user contains the representation of a chat participant's identity.

User carries the display attributes attached to broadcast messages and session
greetings. Authentication lives in the auth/jwt package; credentials are never
handled here.
*/
package user

// User represents the identity and display attributes of a chat participant.
// Fields use JSON tags for serialization in WebSocket frames and HTTP responses.
type User struct {
	// ID is the unique identifier for the user, taken from the token subject.
	ID string `json:"id"`

	// Username is the display name of the user.
	Username string `json:"username"`

	// Email is the contact address of the user, when the store knows it.
	Email string `json:"email,omitempty"`

	// Avatar is a presigned URL for the user's avatar image.
	Avatar string `json:"avatar,omitempty"`
}

// Anonymous reports whether u carries no identity.
func (u User) Anonymous() bool {
	return u.ID == ""
}
