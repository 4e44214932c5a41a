package model

import "time"

// Draft is a host's not-yet-published game shell. It is consumed exactly
// once by publish and otherwise expires unread via its store TTL.
type Draft struct {
	ID           string    `json:"draftId"`
	HostUserID   string    `json:"hostUserId"`
	SpectrumID   string    `json:"spectrumId"`
	SecretTarget int       `json:"secretTarget"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the draft's TTL has elapsed at now.
func (d *Draft) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
