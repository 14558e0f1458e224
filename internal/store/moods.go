package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// SetMood logs level (and an optional note) for key. The entry is visible
// immediately; it is then replaced by the server-confirmed value, or the
// previous entry is restored if the service rejects it.
//
// Overlapping calls for the same key are last-write-wins: only the most
// recently issued call may confirm or roll back, and a rollback restores the
// value the service last held for key.
func (s *Store) SetMood(ctx context.Context, key calendar.DateKey, level int, note string) {
	log := slog.With(
		config.LogKeyComponent, config.CompStore,
		config.LogKeyDateKey, string(key),
		config.LogKeyLevel, level,
	)
	if err := validateMood(key, level); err != nil {
		log.Warn(config.ErrOperationFailed, config.LogKeyError, err)
		s.update(func(st *State) { st.LastError = err.Error() })
		return
	}

	optimistic := mood.Entry{Level: level, Note: mood.NormalizeNote(note)}
	var id uint64

	runMutation(ctx, s, mutation[mood.Record]{
		op:  "set_mood",
		log: log,
		apply: func(st *State) {
			id = s.beginMood(st, key)
			st.Entries[key] = optimistic
		},
		remote: func(ctx context.Context, token string) (mood.Record, error) {
			return s.gateway.UpsertMood(ctx, key, optimistic, token)
		},
		reconcile: func(st *State, confirmed mood.Record) {
			st.Entries[key] = confirmed.Entry()
		},
		rebase: func(st *State, confirmed mood.Record) {
			s.rebaseMood(st, key, baseEntry{entry: confirmed.Entry(), existed: true})
		},
		revert: func(st *State) { s.restoreMood(st, key) },
		latest: func() bool { return s.moodSeq.isLatest(key, id) },
		settle: func(st *State, _ bool) { s.endMood(st, key, id) },
	})
}

// ClearMood removes the entry of key. Nothing happens when there is no entry.
func (s *Store) ClearMood(ctx context.Context, key calendar.DateKey) {
	s.mu.Lock()
	_, exists := s.state.Entries[key]
	s.mu.Unlock()
	if !exists {
		return
	}

	log := slog.With(
		config.LogKeyComponent, config.CompStore,
		config.LogKeyDateKey, string(key),
	)
	var id uint64

	runMutation(ctx, s, mutation[struct{}]{
		op:  "clear_mood",
		log: log,
		apply: func(st *State) {
			id = s.beginMood(st, key)
			delete(st.Entries, key)
		},
		remote: func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, s.gateway.DeleteMood(ctx, key, token)
		},
		reconcile: func(*State, struct{}) {},
		rebase: func(st *State, _ struct{}) {
			s.rebaseMood(st, key, baseEntry{})
		},
		revert: func(st *State) { s.restoreMood(st, key) },
		latest: func() bool { return s.moodSeq.isLatest(key, id) },
		settle: func(st *State, _ bool) { s.endMood(st, key, id) },
	})
}

// baseEntry is the value a date rolls back to.
type baseEntry struct {
	entry   mood.Entry
	existed bool
}

// moodFlight tracks the writes of one date that have not settled yet.
type moodFlight struct {
	base     baseEntry
	inFlight int
	reverted bool // The latest write failed and the base is shown.
}

// beginMood and endMood track in-flight mood writes. The first write of a
// key captures its rollback target. Callers hold s.mu.
func (s *Store) beginMood(st *State, key calendar.DateKey) uint64 {
	f, ok := s.moodFlights[key]
	if !ok {
		entry, existed := st.Entries[key]
		f = &moodFlight{base: baseEntry{entry: entry, existed: existed}}
		s.moodFlights[key] = f
	}
	f.inFlight++
	f.reverted = false
	s.pendingMoods++
	st.IsSavingMood = true
	return s.moodSeq.next(key)
}

func (s *Store) endMood(st *State, key calendar.DateKey, id uint64) {
	s.pendingMoods--
	st.IsSavingMood = s.pendingMoods > 0
	s.moodSeq.done(key, id)
	if f := s.moodFlights[key]; f != nil {
		f.inFlight--
		if f.inFlight == 0 {
			delete(s.moodFlights, key)
		}
	}
}

// restoreMood shows the rollback target of key.
func (s *Store) restoreMood(st *State, key calendar.DateKey) {
	f := s.moodFlights[key]
	if f == nil {
		return
	}
	f.reverted = true
	showEntry(st, key, f.base)
}

// rebaseMood records a value the service accepted from a superseded write.
// When the latest write already rolled back, that value is what the service
// holds, so it is shown too.
func (s *Store) rebaseMood(st *State, key calendar.DateKey, base baseEntry) {
	f := s.moodFlights[key]
	if f == nil {
		return
	}
	f.base = base
	if f.reverted {
		showEntry(st, key, base)
	}
}

func showEntry(st *State, key calendar.DateKey, base baseEntry) {
	if base.existed {
		st.Entries[key] = base.entry
		return
	}
	delete(st.Entries, key)
}

func validateMood(key calendar.DateKey, level int) error {
	if !key.Valid() {
		return errors.New(config.ErrInvalidDateKey)
	}
	return mood.CheckLevel(level)
}
