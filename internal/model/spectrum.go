package model

// Spectrum is a labeled continuum that guesses are placed on.
// Spectra are immutable reference data supplied by the content catalog.
type Spectrum struct {
	ID         string `json:"id"`
	LeftLabel  string `json:"leftLabel"`
	RightLabel string `json:"rightLabel"`
	Difficulty string `json:"difficulty,omitempty"`
	Context    string `json:"context,omitempty"`
}
