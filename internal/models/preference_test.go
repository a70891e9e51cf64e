// internal/models/preference_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		expect []string
	}{
		{
			name:   "trims and lowercases",
			input:  []string{"  BTC ", "Eth"},
			expect: []string{"btc", "eth"},
		},
		{
			name:   "dedupes after folding",
			input:  []string{"Gold", "gold", " GOLD"},
			expect: []string{"gold"},
		},
		{
			name:   "drops empties and sorts",
			input:  []string{"zinc", "", "  ", "copper"},
			expect: []string{"copper", "zinc"},
		},
		{
			name:   "nil input yields empty set",
			input:  nil,
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, NormalizeSet(tt.input))
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences("user-1")

	assert.Equal(t, "user-1", p.UserID)
	assert.True(t, p.Enabled)
	assert.True(t, p.NotifyOnNew)
	assert.True(t, p.NotifyOnUpdates)
	assert.Equal(t, PreferenceModeAll, p.Mode)
	assert.Equal(t, MatchPolicyCategoryOnly, p.MatchPolicy)
}
