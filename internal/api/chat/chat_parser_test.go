package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dateai/dateai-server/internal/types"
)

const sampleCompletion = `Here are two ideas for your evening:

EVENT_START
Title: Jazz at the Blue Note
Date: 06/01/2024
Time: Doors open at 7:30 PM sharp
Location: Blue Note, 131 W 3rd St, New York, NY
Category: live-music
Price: $25-$45
Description: An intimate night of jazz standards
EVENT_END

Between those you could take a walk along the river.

EVENT_START
Title: Midnight Comedy Hour
Date: sometime next week
Location: The Cellar, 117 MacDougal St, New York, NY
Category: COMEDY
Description: Late night stand-up showcase
EVENT_END`

func TestParseEventBlocks(t *testing.T) {
	events := ParseEventBlocks(sampleCompletion)
	require.Len(t, events, 2)

	first := events[0]
	assert.Contains(t, first.ID, "ai-")
	assert.Equal(t, "Jazz at the Blue Note", first.Title)
	assert.Equal(t, "6/1/2024", first.Date, "parseable dates are normalized")
	assert.Equal(t, "7:30 PM", first.Time, "the clock time is pulled out of prose")
	assert.Equal(t, "Blue Note, 131 W 3rd St, New York, NY", first.Location.Address)
	assert.Equal(t, types.CategoryLiveMusic, first.Category)
	assert.Equal(t, "$25-$45", first.PriceRange)
	assert.Equal(t, "An intimate night of jazz standards", first.Description)

	second := events[1]
	assert.Equal(t, "sometime next week", second.Date, "unparseable dates pass through")
	assert.Equal(t, types.CategoryComedy, second.Category, "category matching is case-insensitive")
	assert.Empty(t, second.Time)
}

func TestParseEventBlocksSkipsIncompleteBlocks(t *testing.T) {
	missingTitle := "EVENT_START\nLocation: Somewhere\nEVENT_END"
	missingLocation := "EVENT_START\nTitle: Nameless Show\nEVENT_END"

	assert.Empty(t, ParseEventBlocks(missingTitle))
	assert.Empty(t, ParseEventBlocks(missingLocation))
	assert.Empty(t, ParseEventBlocks("no blocks in this text at all"))
}

func TestParseEventBlocksUnknownCategoryFallsBack(t *testing.T) {
	content := "EVENT_START\nTitle: Mystery Night\nLocation: 1 Main St\nCategory: underwater\nEVENT_END"

	events := ParseEventBlocks(content)
	require.Len(t, events, 1)
	assert.Equal(t, types.CategorySpecial, events[0].Category)
}
