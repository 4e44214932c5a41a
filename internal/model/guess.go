package model

import "time"

// Guess is one participant's single, immutable placement on the spectrum.
// At most one guess exists per (gameId, userId).
type Guess struct {
	ID            string    `json:"guessId"`
	GameID        string    `json:"gameId"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	Value         int       `json:"value"`
	Justification string    `json:"justification,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Source        string    `json:"source,omitempty"`
	CommentRef    string    `json:"commentRef,omitempty"`

	// Upvotes is the external social signal synced onto the guess by the
	// comment collaborator. It feeds the persuasion score and is the only
	// mutable field on a guess.
	Upvotes float64 `json:"upvotes"`
}

// MedianSnapshot is the current middle value of all submitted guesses.
// It is derived state: the guess set remains the source of truth.
type MedianSnapshot struct {
	GameID       string    `json:"gameId"`
	Median       int       `json:"median"`
	CalculatedAt time.Time `json:"calculatedAt"`
	SampleSize   int       `json:"sampleSize"`
	Freshness    string    `json:"freshness"`
}

const (
	FreshnessLive   = "live"
	FreshnessCached = "cached"
)
