package mood

import (
	"errors"
	"sort"
	"strings"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
)

const (
	MinLevel   = 1
	MaxLevel   = 5
	LevelCount = MaxLevel - MinLevel + 1
)

// Entry is the mood logged for one day. An empty Note means no note.
type Entry struct {
	Level int
	Note  string
}

// Record is a server-confirmed entry together with its day.
type Record struct {
	Date  calendar.DateKey
	Level int
	Note  string
}

// Entry drops the date of a record.
func (r Record) Entry() Entry {
	return Entry{Level: r.Level, Note: r.Note}
}

// Entries maps a day to its logged mood. Days never logged have no key.
type Entries map[calendar.DateKey]Entry

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// CheckLevel returns an error for out-of-range levels.
func CheckLevel(level int) error {
	if !ValidLevel(level) {
		return errors.New(config.ErrInvalidLevel)
	}
	return nil
}

// NormalizeNote trims surrounding whitespace and caps the length the same way
// the service does.
func NormalizeNote(note string) string {
	trimmed := strings.TrimSpace(note)
	if r := []rune(trimmed); len(r) > config.MaxNoteLength {
		trimmed = strings.TrimSpace(string(r[:config.MaxNoteLength]))
	}
	return trimmed
}

// Clone returns an independent copy. Cloning nil yields an empty map.
func (e Entries) Clone() Entries {
	out := make(Entries, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold exactly the same entries.
func (e Entries) Equal(other Entries) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		if o, ok := other[k]; !ok || o != v {
			return false
		}
	}
	return true
}

// SortedKeys returns the keys in chronological order.
func (e Entries) SortedKeys() []calendar.DateKey {
	keys := make([]calendar.DateKey, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// InYear returns the subset of entries belonging to year.
func (e Entries) InYear(year int) Entries {
	out := make(Entries)
	for k, v := range e {
		if k.Year() == year {
			out[k] = v
		}
	}
	return out
}

// ReplaceYear drops every entry of year and inserts records instead.
// Records with invalid levels or dates, or dated outside year, are skipped.
func (e Entries) ReplaceYear(year int, records []Record) {
	for k := range e {
		if k.Year() == year {
			delete(e, k)
		}
	}
	for _, r := range records {
		if !ValidLevel(r.Level) || !r.Date.Valid() || r.Date.Year() != year {
			continue
		}
		e[r.Date] = r.Entry()
	}
}
