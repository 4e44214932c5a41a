package repository

import "fmt"

// Key shapes. Hashes for multi-field records, sorted sets for the
// schedule / guess ranking / job queue, plain sets for phase membership.
func draftKey(id string) string        { return "draft:" + id }
func gameKey(id string) string         { return "game:" + id }
func guessKey(id string) string        { return "guess:" + id }
func phaseSetKey(phase string) string  { return fmt.Sprintf("games:phase:%s", phase) }
func guessSetKey(gameID string) string { return fmt.Sprintf("game:%s:guesses", gameID) }
func guessersKey(gameID string) string { return fmt.Sprintf("game:%s:guessers", gameID) }
func medianKey(gameID string) string   { return fmt.Sprintf("game:%s:median", gameID) }

const (
	scheduleKey     = "games:schedule"
	finalizeJobsKey = "jobs:finalize"
)
