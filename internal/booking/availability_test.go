package booking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeIntervals(t *testing.T) {
	window := iv("08:00", "18:00")

	cases := []struct {
		name   string
		booked []Interval
		want   []Interval
	}{
		{
			name: "empty day",
			want: []Interval{window},
		},
		{
			name:   "single reservation",
			booked: []Interval{iv("10:00", "11:30")},
			want:   []Interval{iv("08:00", "10:00"), iv("11:30", "18:00")},
		},
		{
			name:   "overlapping reservations",
			booked: []Interval{iv("09:30", "11:00"), iv("09:00", "10:00")},
			want:   []Interval{iv("08:00", "09:00"), iv("11:00", "18:00")},
		},
		{
			name:   "nested reservation does not rewind the cursor",
			booked: []Interval{iv("09:00", "12:00"), iv("10:00", "10:30")},
			want:   []Interval{iv("08:00", "09:00"), iv("12:00", "18:00")},
		},
		{
			name:   "back to back",
			booked: []Interval{iv("08:00", "09:00"), iv("09:00", "10:00")},
			want:   []Interval{iv("10:00", "18:00")},
		},
		{
			name:   "sticks out of the window",
			booked: []Interval{iv("07:00", "08:30"), iv("17:30", "19:00")},
			want:   []Interval{iv("08:30", "17:30")},
		},
		{
			name:   "fully booked",
			booked: []Interval{iv("06:00", "20:00")},
			want:   []Interval{},
		},
		{
			name:   "outside the window is ignored",
			booked: []Interval{iv("18:00", "19:00")},
			want:   []Interval{window},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FreeIntervals(window, tc.booked))
		})
	}
}

func TestFreeIntervalsDoesNotMutateInput(t *testing.T) {
	booked := []Interval{iv("14:00", "15:00"), iv("09:00", "10:00")}
	FreeIntervals(iv("08:00", "18:00"), booked)
	assert.Equal(t, iv("14:00", "15:00"), booked[0])
}

// Free intervals plus the booked time inside the window rebuild the window
// exactly: every minute is covered once and only once.
func TestFreeIntervalsReconstructWindow(t *testing.T) {
	window := iv("08:00", "18:00")
	minutes := int(window.Duration() / time.Minute)
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 500; round++ {
		booked := make([]Interval, rng.Intn(8))
		for i := range booked {
			s := rng.Intn(minutes+120) - 60
			l := 1 + rng.Intn(180)
			booked[i] = Interval{
				Start: window.Start.Add(time.Duration(s) * time.Minute),
				End:   window.Start.Add(time.Duration(s+l) * time.Minute),
			}
		}

		busy := make([]bool, minutes)
		for _, b := range booked {
			if c, ok := b.Clip(window); ok {
				for m := int(c.Start.Sub(window.Start) / time.Minute); m < int(c.End.Sub(window.Start)/time.Minute); m++ {
					busy[m] = true
				}
			}
		}

		free := FreeIntervals(window, booked)
		covered := make([]int, minutes)
		for i, f := range free {
			require.True(t, f.End.After(f.Start), "empty free interval %v", f)
			require.False(t, f.Start.Before(window.Start) || f.End.After(window.End), "free interval outside window %v", f)
			if i > 0 {
				require.True(t, free[i-1].End.Before(f.Start), "free intervals not maximal/disjoint: %v %v", free[i-1], f)
			}
			for m := int(f.Start.Sub(window.Start) / time.Minute); m < int(f.End.Sub(window.Start)/time.Minute); m++ {
				covered[m]++
			}
		}
		for m := 0; m < minutes; m++ {
			if busy[m] {
				require.Zero(t, covered[m], "minute %d booked and free (round %d)", m, round)
			} else {
				require.Equal(t, 1, covered[m], "minute %d lost (round %d)", m, round)
			}
		}
	}
}

func TestFreeHourlySlots(t *testing.T) {
	t.Run("half hour booking blocks its slot", func(t *testing.T) {
		got := FreeHourlySlots(iv("08:00", "11:00"), []Interval{iv("09:00", "09:30")})
		assert.Equal(t, []string{"08:00", "10:00"}, got)
	})

	t.Run("quantized view differs from free intervals", func(t *testing.T) {
		booked := []Interval{iv("10:15", "10:45")}
		assert.Equal(t, []string{"08:00", "09:00", "11:00"}, FreeHourlySlots(iv("08:00", "12:00"), booked))
		assert.Equal(t, []Interval{iv("08:00", "10:15"), iv("10:45", "12:00")}, FreeIntervals(iv("08:00", "12:00"), booked))
	})

	t.Run("adjacent booking leaves slot free", func(t *testing.T) {
		got := FreeHourlySlots(iv("08:00", "10:00"), []Interval{iv("07:00", "08:00"), iv("10:00", "11:00")})
		assert.Equal(t, []string{"08:00", "09:00"}, got)
	})

	t.Run("partial trailing hour is not a slot", func(t *testing.T) {
		got := FreeHourlySlots(iv("08:00", "10:30"), nil)
		assert.Equal(t, []string{"08:00", "09:00"}, got)
	})

	t.Run("full day", func(t *testing.T) {
		got := FreeHourlySlots(iv("08:00", "18:00"), nil)
		assert.Len(t, got, 10)
		assert.Equal(t, "17:00", got[9])
	})
}

func TestHasConflict(t *testing.T) {
	existing := []Interval{iv("14:30", "14:45")}
	assert.True(t, HasConflict(iv("14:00", "15:00"), existing))
	assert.False(t, HasConflict(iv("14:45", "15:00"), existing))
	assert.False(t, HasConflict(iv("14:00", "15:00"), nil))
}

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	day := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC) // still the 10th in Sao Paulo
	w, err := DayWindow(day, loc, 8*time.Hour, 18*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 18, 0, 0, 0, loc), w.End)

	_, err = DayWindow(day, loc, 18*time.Hour, 8*time.Hour)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute, d)

	_, err = ParseClock("8h")
	assert.Error(t, err)
}
