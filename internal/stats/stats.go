// Package stats derives read models from the mood journal.
package stats

import (
	"time"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// Summary describes one year of the journal.
type Summary struct {
	Year int
	// Counts holds the number of days logged at each level, index 0 being level 1.
	Counts [mood.LevelCount]int
	Logged int
	// Average is the mean level of logged days, 0 when nothing is logged.
	Average float64
	// CurrentStreak counts consecutive logged days ending at the reference day.
	// A reference day not yet logged does not break the streak ending the day before.
	CurrentStreak int
	LongestStreak int
	// TopLevel is the most frequent level (the higher one on ties), 0 when empty.
	TopLevel int
}

// Month is the aggregate of one calendar month.
type Month struct {
	Month   time.Month
	Logged  int
	Average float64
}

// Summarize computes the summary of year. now is the reference day for the
// current streak; when now lies outside year the streak ends on Dec 31.
func Summarize(entries mood.Entries, year int, now time.Time) Summary {
	sum := Summary{Year: year}
	total := 0
	for key, e := range entries.InYear(year) {
		if !mood.ValidLevel(e.Level) || !key.Valid() {
			continue
		}
		sum.Counts[e.Level-mood.MinLevel]++
		sum.Logged++
		total += e.Level
	}
	if sum.Logged == 0 {
		return sum
	}
	sum.Average = float64(total) / float64(sum.Logged)

	best := 0
	for i, c := range sum.Counts {
		if c > 0 && c >= best {
			best = c
			sum.TopLevel = i + mood.MinLevel
		}
	}

	sum.LongestStreak = longestStreak(entries, year)
	sum.CurrentStreak = currentStreak(entries, year, now)
	return sum
}

// ByMonth returns the twelve monthly aggregates of year.
func ByMonth(entries mood.Entries, year int) [12]Month {
	var out [12]Month
	totals := [12]int{}
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for key, e := range entries.InYear(year) {
		t, err := calendar.ParseDateKey(string(key))
		if err != nil || !mood.ValidLevel(e.Level) {
			continue
		}
		i := int(t.Month()) - 1
		out[i].Logged++
		totals[i] += e.Level
	}
	for i := range out {
		if out[i].Logged > 0 {
			out[i].Average = float64(totals[i]) / float64(out[i].Logged)
		}
	}
	return out
}

func longestStreak(entries mood.Entries, year int) int {
	longest, run := 0, 0
	day := noon(year, time.January, 1)
	for day.Year() == year {
		if _, ok := entries[calendar.KeyOf(day)]; ok {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
		day = day.AddDate(0, 0, 1)
	}
	return longest
}

func currentStreak(entries mood.Entries, year int, now time.Time) int {
	day := noon(now.Year(), now.Month(), now.Day())
	switch {
	case now.Year() < year:
		return 0
	case now.Year() > year:
		day = noon(year, time.December, 31)
	default:
		if _, ok := entries[calendar.KeyOf(day)]; !ok {
			day = day.AddDate(0, 0, -1)
		}
	}

	streak := 0
	for day.Year() == year {
		if _, ok := entries[calendar.KeyOf(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// noon avoids DST transitions shifting the calendar day when stepping by days.
func noon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}
