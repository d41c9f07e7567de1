package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerificationToken_GrantsAccess(t *testing.T) {
	validUntil := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	consumedAt := validUntil.Add(-2 * time.Hour)

	tests := []struct {
		name     string
		consumed bool
		now      time.Time
		want     bool
	}{
		{"consumed and inside window", true, validUntil.Add(-time.Hour), true},
		{"consumed at window edge", true, validUntil, false},
		{"consumed after window", true, validUntil.Add(time.Hour), false},
		{"unconsumed inside window", false, validUntil.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := VerificationToken{
				UserID:     42,
				ValidUntil: validUntil,
			}
			if tt.consumed {
				token.ConsumedAt = &consumedAt
			}

			assert.Equal(t, tt.want, token.GrantsAccess(tt.now))
		})
	}
}

func TestFileReference_MessageIDs(t *testing.T) {
	single := FileReference{Start: 5, End: 5}
	assert.Equal(t, []int64{5}, single.MessageIDs())
	assert.False(t, single.IsEmpty())

	spread := FileReference{Start: 2, End: 5, Range: true}
	assert.Equal(t, []int64{2, 3, 4, 5}, spread.MessageIDs())

	inverted := FileReference{Start: 5, End: 2, Range: true}
	assert.Empty(t, inverted.MessageIDs())
	assert.True(t, inverted.IsEmpty())
}
