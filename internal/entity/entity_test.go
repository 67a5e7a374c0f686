package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteFlagOnlyOnSafetySlots(t *testing.T) {
	for _, s := range TimeSlots() {
		want := s.PostNumber == 3 || s.PostNumber == 6 || s.PostNumber == 9
		assert.Equal(t, want, s.IncludeQuote, "post %d", s.PostNumber)
		if want {
			assert.Equal(t, CategoryAISafety, s.CategoryID)
		}
	}
}

func TestEachCategoryHasRanksOneToThree(t *testing.T) {
	ranks := map[CategoryID][]int{}
	for _, s := range TimeSlots() {
		ranks[s.CategoryID] = append(ranks[s.CategoryID], s.Rank)
	}
	require.Len(t, ranks, 3)
	for id, r := range ranks {
		assert.Equal(t, []int{1, 2, 3}, r, "category %s", id)
	}
}

func TestSlotUTCHoursFollowCivicOffsets(t *testing.T) {
	for _, s := range TimeSlots() {
		assert.Equal(t, (s.LocalHour+5)%24, s.UTCHourStandard, "post %d", s.PostNumber)
		assert.Equal(t, (s.LocalHour+4)%24, s.UTCHourDaylight, "post %d", s.PostNumber)
	}
}

func TestSlotByPostNumber(t *testing.T) {
	s, ok := SlotByPostNumber(6)
	require.True(t, ok)
	assert.Equal(t, 2, s.Rank)

	_, ok = SlotByPostNumber(0)
	assert.False(t, ok)
	_, ok = SlotByPostNumber(10)
	assert.False(t, ok)
}

func TestQuoteForDate(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2026-01-01", 1},
		{"2026-01-05", 5},
		{"2026-01-06", 1},
		{"2026-02-01", 2}, // day 32
		{"2024-12-31", 1}, // day 366 of a leap year
	}
	for _, tc := range cases {
		d, err := time.Parse("2006-01-02", tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, QuoteForDate(d).ID, tc.date)
	}
}

func TestCategoriesHaveSearchAndHashtags(t *testing.T) {
	for _, c := range Categories() {
		assert.NotEmpty(t, c.Description)
		assert.NotEmpty(t, c.BackupQueries)
		assert.GreaterOrEqual(t, len(c.Hashtags), 3)
		got, ok := CategoryByID(c.ID)
		assert.True(t, ok)
		assert.Equal(t, c.DisplayName, got.DisplayName)
	}
	_, ok := CategoryByID("sports")
	assert.False(t, ok)
}

func TestPostID(t *testing.T) {
	assert.Equal(t, "2026-10-19-P3", PostID("2026-10-19", 3))
}
