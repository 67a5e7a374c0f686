package slot

import (
	"time"

	"golang-news-slate/internal/entity"
	"golang-news-slate/pkg/utils"
)

// Clock maps instants to the civic calendar. Daylight time starts on the second Sunday of
// March at 02:00 standard time and ends on the first Sunday of November at 02:00 daylight
// time, recomputed for every year.
type Clock struct {
	standard time.Duration
	daylight time.Duration
}

// NewClock builds a Clock from UTC offsets in hours, e.g. -5 and -4 for US Eastern.
func NewClock(standardOffsetHours, daylightOffsetHours int) Clock {
	return Clock{
		standard: time.Duration(standardOffsetHours) * time.Hour,
		daylight: time.Duration(daylightOffsetHours) * time.Hour,
	}
}

// IsDaylight reports whether daylight time is in effect at t.
func (c Clock) IsDaylight(t time.Time) bool {
	// wall clock in standard time, expressed as a UTC time value
	wall := t.UTC().Add(c.standard)
	year := wall.Year()
	start := time.Date(year, time.March, utils.NthWeekday(year, time.March, time.Sunday, 2), 2, 0, 0, 0, time.UTC)
	// 02:00 daylight is 01:00 standard
	end := time.Date(year, time.November, utils.NthWeekday(year, time.November, time.Sunday, 1), 1, 0, 0, 0, time.UTC)
	return !wall.Before(start) && wall.Before(end)
}

// Offset returns the UTC offset in effect at t.
func (c Clock) Offset(t time.Time) time.Duration {
	if c.IsDaylight(t) {
		return c.daylight
	}
	return c.standard
}

// Local returns t in the civic zone.
func (c Clock) Local(t time.Time) time.Time {
	offset := c.Offset(t)
	return t.In(time.FixedZone("civic", int(offset.Seconds())))
}

// Date returns the civic calendar date of t.
func (c Clock) Date(t time.Time) string {
	return utils.FormatDate(c.Local(t))
}

// SlotAt resolves the UTC hour of t to the time slot scheduled in that hour, if any.
func (c Clock) SlotAt(t time.Time) (entity.TimeSlot, bool) {
	hour := t.UTC().Hour()
	daylight := c.IsDaylight(t)
	for _, s := range entity.TimeSlots() {
		want := s.UTCHourStandard
		if daylight {
			want = s.UTCHourDaylight
		}
		if want == hour {
			return s, true
		}
	}
	return entity.TimeSlot{}, false
}

// SlotTime returns the instant post n is due on the given civic date.
func (c Clock) SlotTime(date string, postNumber int) (time.Time, bool) {
	s, ok := entity.SlotByPostNumber(postNumber)
	if !ok {
		return time.Time{}, false
	}
	d, err := utils.ParseDate(date)
	if err != nil {
		return time.Time{}, false
	}
	// local wall time at the slot hour, first assuming standard time
	wall := time.Date(d.Year(), d.Month(), d.Day(), s.LocalHour, 0, 0, 0, time.UTC)
	at := wall.Add(-c.standard)
	if c.IsDaylight(at) {
		at = wall.Add(-c.daylight)
	}
	return at, true
}
