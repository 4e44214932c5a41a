package model

import "time"

// Guess values and secret targets share the same inclusive domain.
const (
	MinGuessValue = 0
	MaxGuessValue = 100
)

type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseReveal   Phase = "reveal"
	PhaseArchived Phase = "archived"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseActive, PhaseReveal, PhaseArchived:
		return true
	}
	return false
}

// CanAdvanceTo reports whether the forward-only state machine allows
// moving from p to next. Same-state and backward moves are rejected,
// as is skipping the reveal phase.
func (p Phase) CanAdvanceTo(next Phase) bool {
	switch p {
	case PhaseActive:
		return next == PhaseReveal
	case PhaseReveal:
		return next == PhaseArchived
	case PhaseArchived:
		return false
	}
	return false
}

// Timing holds the lifecycle timestamps of a game.
type Timing struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	RevealAt  time.Time `json:"revealAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostRef points at the public post created for a published game.
type PostRef struct {
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
	URL       string `json:"url"`
}

// Game is the metadata record of a published game.
type Game struct {
	ID                string    `json:"id"`
	HostUserID        string    `json:"hostUserId"`
	HostUsername      string    `json:"hostUsername"`
	Clue              string    `json:"clue"`
	Phase             Phase     `json:"state"`
	Spectrum          Spectrum  `json:"spectrum"`
	SecretTarget      int       `json:"secretTarget"`
	Timing            Timing    `json:"timing"`
	TotalParticipants int       `json:"totalParticipants"`
	MedianGuess       *int      `json:"medianGuess,omitempty"`
	PublishedAt       time.Time `json:"publishedAt"`
	PostRef           *PostRef  `json:"postRef,omitempty"`
}

// GameView is the client-facing projection of a Game. The secret target
// is redacted for everyone but the host until the game is archived, and
// the median is withheld while guessing is still open.
type GameView struct {
	ID                string    `json:"id"`
	HostUserID        string    `json:"hostUserId"`
	HostUsername      string    `json:"hostUsername"`
	Clue              string    `json:"clue"`
	Phase             Phase     `json:"state"`
	Spectrum          Spectrum  `json:"spectrum"`
	SecretTarget      *int      `json:"secretTarget,omitempty"`
	Timing            Timing    `json:"timing"`
	TotalParticipants int       `json:"totalParticipants"`
	MedianGuess       *int      `json:"medianGuess,omitempty"`
	PublishedAt       time.Time `json:"publishedAt"`
	PostRef           *PostRef  `json:"postRef,omitempty"`
}

// View projects g for the given viewer.
func (g *Game) View(viewerID string) *GameView {
	v := &GameView{
		ID:                g.ID,
		HostUserID:        g.HostUserID,
		HostUsername:      g.HostUsername,
		Clue:              g.Clue,
		Phase:             g.Phase,
		Spectrum:          g.Spectrum,
		Timing:            g.Timing,
		TotalParticipants: g.TotalParticipants,
		PublishedAt:       g.PublishedAt,
		PostRef:           g.PostRef,
	}
	if g.Phase == PhaseArchived || viewerID == g.HostUserID {
		target := g.SecretTarget
		v.SecretTarget = &target
	}
	if g.Phase != PhaseActive {
		v.MedianGuess = g.MedianGuess
	}
	return v
}
