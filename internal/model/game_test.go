package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Phase
		to      Phase
		allowed bool
	}{
		{"active to reveal", PhaseActive, PhaseReveal, true},
		{"reveal to archived", PhaseReveal, PhaseArchived, true},
		{"active to archived skips reveal", PhaseActive, PhaseArchived, false},
		{"active to active", PhaseActive, PhaseActive, false},
		{"reveal to reveal", PhaseReveal, PhaseReveal, false},
		{"reveal back to active", PhaseReveal, PhaseActive, false},
		{"archived to reveal", PhaseArchived, PhaseReveal, false},
		{"archived to archived", PhaseArchived, PhaseArchived, false},
		{"unknown phase", Phase("bogus"), PhaseReveal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestGameViewRedaction(t *testing.T) {
	median := 40
	game := &Game{
		ID:           "g1",
		HostUserID:   "host",
		Phase:        PhaseActive,
		SecretTarget: 72,
		MedianGuess:  &median,
	}

	t.Run("active hides target and median from players", func(t *testing.T) {
		view := game.View("someone-else")
		assert.Nil(t, view.SecretTarget)
		assert.Nil(t, view.MedianGuess)
	})

	t.Run("active shows target to host but not median", func(t *testing.T) {
		view := game.View("host")
		if assert.NotNil(t, view.SecretTarget) {
			assert.Equal(t, 72, *view.SecretTarget)
		}
		assert.Nil(t, view.MedianGuess)
	})

	t.Run("reveal shows median but keeps target hidden", func(t *testing.T) {
		game.Phase = PhaseReveal
		view := game.View("someone-else")
		assert.Nil(t, view.SecretTarget)
		if assert.NotNil(t, view.MedianGuess) {
			assert.Equal(t, 40, *view.MedianGuess)
		}
	})

	t.Run("archived shows everything", func(t *testing.T) {
		game.Phase = PhaseArchived
		view := game.View("someone-else")
		if assert.NotNil(t, view.SecretTarget) {
			assert.Equal(t, 72, *view.SecretTarget)
		}
		assert.NotNil(t, view.MedianGuess)
	})
}
