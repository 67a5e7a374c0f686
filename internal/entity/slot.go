package entity

import (
	"fmt"
	"time"
)

// TimeSlot is one fixed publishing time of the daily slate.
type TimeSlot struct {
	PostNumber      int        `json:"post_number"`
	LocalHour       int        `json:"local_hour"`
	UTCHourStandard int        `json:"utc_hour_standard"`
	UTCHourDaylight int        `json:"utc_hour_daylight"`
	CategoryID      CategoryID `json:"category_id"`
	Rank            int        `json:"rank"`
	IncludeQuote    bool       `json:"include_quote"`
}

// SlotCount is the number of posts per day.
const SlotCount = 9

var timeSlots = [SlotCount]TimeSlot{
	{PostNumber: 1, LocalHour: 8, UTCHourStandard: 13, UTCHourDaylight: 12, CategoryID: CategoryBusinessAI, Rank: 1},
	{PostNumber: 2, LocalHour: 9, UTCHourStandard: 14, UTCHourDaylight: 13, CategoryID: CategoryAIResearch, Rank: 1},
	{PostNumber: 3, LocalHour: 10, UTCHourStandard: 15, UTCHourDaylight: 14, CategoryID: CategoryAISafety, Rank: 1, IncludeQuote: true},
	{PostNumber: 4, LocalHour: 12, UTCHourStandard: 17, UTCHourDaylight: 16, CategoryID: CategoryBusinessAI, Rank: 2},
	{PostNumber: 5, LocalHour: 13, UTCHourStandard: 18, UTCHourDaylight: 17, CategoryID: CategoryAIResearch, Rank: 2},
	{PostNumber: 6, LocalHour: 14, UTCHourStandard: 19, UTCHourDaylight: 18, CategoryID: CategoryAISafety, Rank: 2, IncludeQuote: true},
	{PostNumber: 7, LocalHour: 17, UTCHourStandard: 22, UTCHourDaylight: 21, CategoryID: CategoryBusinessAI, Rank: 3},
	{PostNumber: 8, LocalHour: 18, UTCHourStandard: 23, UTCHourDaylight: 22, CategoryID: CategoryAIResearch, Rank: 3},
	{PostNumber: 9, LocalHour: 19, UTCHourStandard: 0, UTCHourDaylight: 23, CategoryID: CategoryAISafety, Rank: 3, IncludeQuote: true},
}

// TimeSlots returns the nine slots ordered by post number.
func TimeSlots() []TimeSlot {
	out := make([]TimeSlot, SlotCount)
	copy(out, timeSlots[:])
	return out
}

// SlotByPostNumber returns the slot for post number n (1..9).
func SlotByPostNumber(n int) (TimeSlot, bool) {
	if n < 1 || n > SlotCount {
		return TimeSlot{}, false
	}
	return timeSlots[n-1], true
}

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	PostStatusPending   PostStatus = "pending"
	PostStatusReady     PostStatus = "ready"
	PostStatusNoArticle PostStatus = "no-article"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

// PostID builds the composite id of a day's post.
func PostID(date string, postNumber int) string {
	return fmt.Sprintf("%s-P%d", date, postNumber)
}

// ScheduledPost is one day's instance of a time slot.
type ScheduledPost struct {
	ID         string           `json:"id"`
	Date       string           `json:"date"`
	Slot       TimeSlot         `json:"slot"`
	Article    *SelectedArticle `json:"article,omitempty"`
	Text       string           `json:"text,omitempty"`
	Hashtags   []string         `json:"hashtags,omitempty"`
	Quote      *BrandQuote      `json:"quote,omitempty"`
	Status     PostStatus       `json:"status"`
	ExternalID string           `json:"external_id,omitempty"`
	PostedAt   *time.Time       `json:"posted_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
