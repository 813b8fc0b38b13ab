package users

import "time"

// User is a directory entry used for owner reassignment.
type User struct {
	ID        string
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
