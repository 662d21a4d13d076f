package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/store"
)

func TestMemoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	id, err := m.CreateWrestler(ctx, model.Wrestler{Name: "Bret Hart"})
	require.NoError(t, err)
	require.NotZero(t, id)

	wrestlers, err := m.Wrestlers(ctx)
	require.NoError(t, err)
	require.Len(t, wrestlers, 1)
	assert.Equal(t, id, wrestlers[0].ID)
}

func TestMemoryUpdateMissing(t *testing.T) {
	m := store.NewMemory()

	err := m.UpdateWrestler(context.Background(), model.Wrestler{ID: 99, Name: "Nobody"})
	assert.Error(t, err)
}

func TestMemoryEventMatches(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	eventID, err := m.CreateEvent(ctx, model.Event{Name: "Starrcade", Date: "1997-12-28", PromotionID: 1},
		[]model.Match{
			{MatchText: "Sting vs. Hollywood Hogan", ParticipantIDs: []int64{1, 2}},
			{MatchText: "Eddie Guerrero vs. Dean Malenko"},
		})
	require.NoError(t, err)

	matches := m.Matches(eventID)
	require.Len(t, matches, 2)
	for _, match := range matches {
		assert.Equal(t, eventID, match.EventID)
		assert.Contains(t, []int{1, 2}, match.MatchOrder)
	}
}
