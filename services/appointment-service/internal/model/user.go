package model

// User is read-only from the scheduling core's perspective; account
// management lives elsewhere.
type User struct {
	ID    string
	Name  string
	Email string
}
