package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func date(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestParse_YearInference(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.November, 15, loc)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "far past rolls to next year",
			raw:  "Jan 10",
			want: date(2026, time.January, 10, loc),
		},
		{
			name: "upcoming date stays in current year",
			raw:  "Nov 20",
			want: date(2025, time.November, 20, loc),
		},
		{
			name: "recent past within threshold stays",
			raw:  "Oct 1",
			want: date(2025, time.October, 1, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, Options{Now: now, Location: loc})
			require.NotNil(t, res.StartDate)
			assert.True(t, tt.want.Equal(*res.StartDate), "got %v, want %v", res.StartDate, tt.want)
			assert.Nil(t, res.EndDate)
		})
	}
}

func TestParse_ExplicitYearNeverRolls(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.November, 15, loc)

	res := Parse("January 10, 2025", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	assert.True(t, date(2025, time.January, 10, loc).Equal(*res.StartDate))
}

func TestParse_LabeledTimes(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.June, 1, loc)

	tests := []struct {
		name      string
		raw       string
		wantStart string
	}{
		{"show wins over doors", "Sat Jun 14 Doors: 7PM // Show: 8PM", "20:00:00"},
		{"doors alone is the fallback", "Sat Jun 14 Doors: 7PM", "19:00:00"},
		{"doors after show still loses", "Jun 14 Show 8pm, Doors 7pm", "20:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, Options{Now: now, Location: loc})
			require.NotNil(t, res.StartTime)
			assert.Equal(t, tt.wantStart, *res.StartTime)
			require.NotNil(t, res.StartDate)
			assert.True(t, date(2025, time.June, 14, loc).Equal(*res.StartDate))
		})
	}
}

func TestParse_TimeRange(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.June, 1, loc)

	res := Parse("June 14, 2025 6:30 PM to 9 PM", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartTime)
	require.NotNil(t, res.EndTime)
	assert.Equal(t, "18:30:00", *res.StartTime)
	assert.Equal(t, "21:00:00", *res.EndTime)
}

func TestParse_DateRanges(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.April, 1, loc)

	tests := []struct {
		name      string
		raw       string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "spaced hyphen",
			raw:       "May 10 - June 7",
			wantStart: date(2025, time.May, 10, loc),
			wantEnd:   date(2025, time.June, 7, loc),
		},
		{
			name:      "through keyword",
			raw:       "May 10, 2025 through June 7, 2025",
			wantStart: date(2025, time.May, 10, loc),
			wantEnd:   date(2025, time.June, 7, loc),
		},
		{
			name:      "en dash",
			raw:       "May 10 – June 7",
			wantStart: date(2025, time.May, 10, loc),
			wantEnd:   date(2025, time.June, 7, loc),
		},
		{
			name:      "bare day on the right side",
			raw:       "January 5 - 8",
			wantStart: date(2026, time.January, 5, loc),
			wantEnd:   date(2026, time.January, 8, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.raw, Options{Now: now, Location: loc})
			require.NotNil(t, res.StartDate)
			require.NotNil(t, res.EndDate)
			assert.True(t, tt.wantStart.Equal(*res.StartDate), "start: got %v, want %v", res.StartDate, tt.wantStart)
			assert.True(t, tt.wantEnd.Equal(*res.EndDate), "end: got %v, want %v", res.EndDate, tt.wantEnd)
		})
	}
}

func TestParse_SingleDateHasNilEnd(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.April, 1, loc)

	res := Parse("Saturday, May 10th, 2025", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	assert.True(t, date(2025, time.May, 10, loc).Equal(*res.StartDate))
	assert.Nil(t, res.EndDate)
	assert.Nil(t, res.StartTime)
}

func TestParse_UTCTimestampConvertsToVenueLocal(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	// 23:30 UTC is 19:30 in New York; the calendar date must not slip
	// forward to the UTC date.
	res := Parse("2025-10-05T23:30:00Z", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	require.NotNil(t, res.StartTime)
	assert.True(t, date(2025, time.October, 5, loc).Equal(*res.StartDate))
	assert.Equal(t, "19:30:00", *res.StartTime)
}

func TestParse_UTCTimestampDateSlipsBackward(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	// 02:00 UTC on the 6th is still the evening of the 5th locally.
	res := Parse("2025-10-06T02:00:00Z", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	require.NotNil(t, res.StartTime)
	assert.True(t, date(2025, time.October, 5, loc).Equal(*res.StartDate))
	assert.Equal(t, "22:00:00", *res.StartTime)
}

func TestParse_OffsetlessTimestampKeptAsWallClock(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	res := Parse("2025-10-05T19:30:00", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	require.NotNil(t, res.StartTime)
	assert.True(t, date(2025, time.October, 5, loc).Equal(*res.StartDate))
	assert.Equal(t, "19:30:00", *res.StartTime)
}

func TestParse_ISORangeSurvivesSplitting(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	// Bare hyphens inside ISO dates must not be mistaken for range
	// separators.
	res := Parse("2025-10-05 through 2025-10-07", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	require.NotNil(t, res.EndDate)
	assert.True(t, date(2025, time.October, 5, loc).Equal(*res.StartDate))
	assert.True(t, date(2025, time.October, 7, loc).Equal(*res.EndDate))
}

func TestParse_MidnightISOIsDateOnly(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	res := Parse("2025-10-05T00:00:00", Options{Now: now, Location: loc})
	require.NotNil(t, res.StartDate)
	assert.Nil(t, res.StartTime)
}

func TestParse_Unparseable(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	now := date(2025, time.October, 1, loc)

	for _, raw := range []string{"", "   ", "TBA", "Every Sunday-ish"} {
		res := Parse(raw, Options{Now: now, Location: loc})
		assert.Nil(t, res.StartDate, "raw %q", raw)
		assert.Nil(t, res.EndDate, "raw %q", raw)
		assert.Nil(t, res.StartTime, "raw %q", raw)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		tok  string
		want string
	}{
		{"7pm", "19:00:00"},
		{"7:30 PM", "19:30:00"},
		{"10 a.m.", "10:00:00"},
		{"12pm", "12:00:00"},
		{"12am", "00:00:00"},
	}
	for _, tt := range tests {
		got := parseClock(tt.tok)
		require.NotNil(t, got, "token %q", tt.tok)
		assert.Equal(t, tt.want, *got, "token %q", tt.tok)
	}

	assert.Nil(t, parseClock("25pm"))
	assert.Nil(t, parseClock("7:75pm"))
	assert.Nil(t, parseClock("noonish"))
}
