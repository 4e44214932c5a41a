package model

// Accolade is a named distinction awarded to a participant.
type Accolade string

const (
	AccoladeBullseye      Accolade = "bullseye"
	AccoladeTopPersuasion Accolade = "top_persuasion"
	AccoladeContrarian    Accolade = "contrarian"
)

// ScoreBreakdown decomposes a player's final score.
type ScoreBreakdown struct {
	Accuracy   int `json:"accuracy"`
	Bonus      int `json:"bonus"`
	Persuasion int `json:"persuasion"`
	Total      int `json:"total"`
}

// PlayerResult is one player's final standing.
type PlayerResult struct {
	UserID     string         `json:"userId"`
	Username   string         `json:"username"`
	GuessValue int            `json:"guessValue"`
	Rank       int            `json:"rank"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Accolades  []Accolade     `json:"accolades,omitempty"`
}

// HostResult is the host's score for the round.
type HostResult struct {
	UserID           string `json:"userId"`
	CluePoints       int    `json:"cluePoints"`
	EngagementPoints int    `json:"engagementPoints"`
	Total            int    `json:"total"`
}

// Consensus labels how tightly the guesses clustered.
type Consensus struct {
	Type              string  `json:"type"`
	StandardDeviation float64 `json:"standardDeviation"`
	Description       string  `json:"description"`
}

// HistogramBucket is one fixed-width range of guess values.
type HistogramBucket struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Count int `json:"count"`
}

// ScoreSummary is the computed result of a finished game. It is derived
// on demand from the stored guesses and never persisted.
type ScoreSummary struct {
	GameID      string              `json:"gameId"`
	TargetValue int                 `json:"targetValue"`
	FinalMedian *int                `json:"finalMedian"`
	Host        HostResult          `json:"host"`
	Players     []PlayerResult      `json:"players"`
	Histogram   []HistogramBucket   `json:"histogram"`
	Accolades   map[Accolade]string `json:"accolades"`
	Consensus   Consensus           `json:"consensus"`
}
