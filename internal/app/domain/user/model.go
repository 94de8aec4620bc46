package user

import "time"

// User is a marketplace participant. Identity arrives from the outside as an
// email address; everything else is mutable profile data.
type User struct {
	ID        string
	Name      string
	Email     string
	Skills    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
