package model

import "time"

// DefaultRating is the Elo rating assigned to a newly registered user.
const DefaultRating = 1200

// RatingFloor is the lowest rating a user's Elo is ever allowed to fall to.
const RatingFloor = 100

// User represents a registered player account stored in the database.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Rating       int
	Games        int
	Wins         int
	Losses       int
	Draws        int
	CreatedAt    time.Time
}

// Summary returns the public fields exposed to other clients over the wire.
func (u User) Summary() (id, username string, rating int) {
	return u.ID, u.Username, u.Rating
}
