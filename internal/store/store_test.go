package store_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/gateway"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/session"
	"github.com/tartampluch/go-moodgrid/internal/store"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockGateway simulates the remote service using `testify/mock`.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchYearMoods(ctx context.Context, year int, token string) ([]mood.Record, error) {
	args := m.Called(ctx, year, token)
	if r := args.Get(0); r != nil {
		return r.([]mood.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) UpsertMood(ctx context.Context, date calendar.DateKey, entry mood.Entry, token string) (mood.Record, error) {
	args := m.Called(ctx, date, entry, token)
	return args.Get(0).(mood.Record), args.Error(1)
}

func (m *MockGateway) DeleteMood(ctx context.Context, date calendar.DateKey, token string) error {
	return m.Called(ctx, date, token).Error(0)
}

func (m *MockGateway) FetchTheme(ctx context.Context, token string) (mood.ThemeSettings, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(mood.ThemeSettings), args.Error(1)
}

func (m *MockGateway) UpdateTheme(ctx context.Context, patch mood.ThemePatch, token string) (mood.ThemeSettings, error) {
	args := m.Called(ctx, patch, token)
	return args.Get(0).(mood.ThemeSettings), args.Error(1)
}

func (m *MockGateway) FetchWallpaperURL(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) RotateWallpaperURL(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// NotifyingGateway also reports refreshed credentials.
type NotifyingGateway struct {
	MockGateway
	refresh func(string)
}

func (g *NotifyingGateway) OnTokenRefresh(fn func(string)) { g.refresh = fn }

// MockSession returns whatever the test programs.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) AccessToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

const token = "tok"

func signedIn() *session.MemoryProvider {
	return session.NewMemoryProvider(&session.Session{AccessToken: token, UserID: "u1"})
}

func httpErr(status int) error {
	return &gateway.Error{Status: status, Message: http.StatusText(status)}
}

func strPtr(s string) *string { return &s }

// gate blocks a mocked call until released and reports when it started.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) run(mock.Arguments) {
	g.started <- struct{}{}
	<-g.release
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("call did not start")
	}
}

// async runs fn on a goroutine and returns a channel closed when it returns.
func async(fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not settle")
	}
}

func sampleTheme(bg string) mood.ThemeSettings {
	th := mood.DefaultTheme()
	th.BgColor = bg
	return th
}

// -----------------------------------------------------------------------------
// Construction & selection
// -----------------------------------------------------------------------------

func TestNew_InitialState(t *testing.T) {
	s := store.New(new(MockGateway), signedIn())
	st := s.Snapshot()

	assert.Empty(t, st.Entries)
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.Empty(t, st.WallpaperURL)
	assert.False(t, st.HasHydrated)
	assert.False(t, st.AuthRequired)
	assert.Empty(t, st.LastError)
	assert.Empty(t, st.SelectedDateKey)
}

func TestSnapshot_IsACopy(t *testing.T) {
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, calendar.DateKey("2026-02-18"), mood.Entry{Level: 3}, token).
		Return(mood.Record{Date: "2026-02-18", Level: 3}, nil)
	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), "2026-02-18", 3, "")

	snap := s.Snapshot()
	snap.Entries["2026-02-18"] = mood.Entry{Level: 1}
	delete(snap.Entries, "2026-02-18")

	assert.Equal(t, mood.Entry{Level: 3}, s.Snapshot().Entries["2026-02-18"])
}

func TestMoodPicker(t *testing.T) {
	s := store.New(new(MockGateway), signedIn())

	s.OpenMoodPicker("2026-03-01")
	assert.Equal(t, calendar.DateKey("2026-03-01"), s.Snapshot().SelectedDateKey)

	s.CloseMoodPicker()
	assert.Empty(t, s.Snapshot().SelectedDateKey)
}

func TestSubscribe(t *testing.T) {
	s := store.New(new(MockGateway), signedIn())
	ch, cancel := s.Subscribe()

	s.OpenMoodPicker("2026-03-01")
	s.CloseMoodPicker()

	// Signals coalesce into one pending notification.
	select {
	case _, ok := <-ch:
		assert.True(t, ok)
	default:
		t.Fatal("expected a notification")
	}
	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok, "channel is closed after cancel")

	// Updates after cancel must not panic.
	s.OpenMoodPicker("2026-03-02")
}

func TestClearErrorAndMarkSignedIn(t *testing.T) {
	gw := new(MockGateway)
	s := store.New(gw, session.NewMemoryProvider(nil))

	s.SetMood(context.Background(), "2026-02-18", 3, "")
	st := s.Snapshot()
	require.True(t, st.AuthRequired)
	require.NotEmpty(t, st.LastError)

	s.ClearError()
	s.MarkSignedIn()
	st = s.Snapshot()
	assert.Empty(t, st.LastError)
	assert.False(t, st.AuthRequired)
}

// -----------------------------------------------------------------------------
// SetMood / ClearMood
// -----------------------------------------------------------------------------

func TestSetMood_OptimisticThenConfirmed(t *testing.T) {
	gw := new(MockGateway)
	g := newGate()
	key := calendar.DateKey("2026-02-18")
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 4, Note: "good day"}, token).
		Run(g.run).
		Return(mood.Record{Date: key, Level: 4, Note: "Good day"}, nil)

	s := store.New(gw, signedIn())
	done := async(func() { s.SetMood(context.Background(), key, 4, "  good day  ") })
	g.waitStarted(t)

	st := s.Snapshot()
	assert.Equal(t, mood.Entry{Level: 4, Note: "good day"}, st.Entries[key])
	assert.True(t, st.IsSavingMood)

	close(g.release)
	wait(t, done)

	st = s.Snapshot()
	assert.Equal(t, mood.Entry{Level: 4, Note: "Good day"}, st.Entries[key], "server value wins")
	assert.False(t, st.IsSavingMood)
	assert.Empty(t, st.LastError)
	gw.AssertExpectations(t)
}

func TestSetMood_FailureRollsBack(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 2}, token).
		Return(mood.Record{Date: key, Level: 2}, nil).Once()
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 5, Note: "x"}, token).
		Return(mood.Record{}, httpErr(http.StatusInternalServerError)).Once()

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), key, 2, "")
	before := s.Snapshot().Entries

	s.SetMood(context.Background(), key, 5, "x")

	st := s.Snapshot()
	assert.True(t, before.Equal(st.Entries))
	assert.Equal(t, mood.Entry{Level: 2}, st.Entries[key])
	assert.Contains(t, st.LastError, "500")
	assert.False(t, st.AuthRequired)
	assert.False(t, st.IsSavingMood)
}

func TestSetMood_FailureOnNewKeyDeletesIt(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
		Return(mood.Record{}, httpErr(http.StatusBadGateway))

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), key, 1, "")

	_, ok := s.Snapshot().Entries[key]
	assert.False(t, ok)
}

func TestSetMood_NoSession(t *testing.T) {
	gw := new(MockGateway)
	s := store.New(gw, session.NewMemoryProvider(nil))

	s.SetMood(context.Background(), "2026-02-18", 3, "")

	st := s.Snapshot()
	_, ok := st.Entries["2026-02-18"]
	assert.False(t, ok)
	assert.True(t, st.AuthRequired)
	assert.Equal(t, config.ErrNoSession, st.LastError)
	assert.False(t, st.IsSavingMood)
	gw.AssertNotCalled(t, "UpsertMood", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetMood_SessionErrorActsAsSignedOut(t *testing.T) {
	gw := new(MockGateway)
	sess := new(MockSession)
	sess.On("AccessToken", mock.Anything).Return("", errors.New("keyring locked"))

	s := store.New(gw, sess)
	s.SetMood(context.Background(), "2026-02-18", 3, "")

	assert.True(t, s.Snapshot().AuthRequired)
	gw.AssertNotCalled(t, "UpsertMood", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetMood_AuthorizationFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, mock.Anything, mock.Anything, token).
		Return(mood.Record{}, httpErr(http.StatusUnauthorized))

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), "2026-02-18", 3, "")

	st := s.Snapshot()
	assert.True(t, st.AuthRequired)
	assert.Contains(t, st.LastError, "401")
	assert.Empty(t, st.Entries)
}

func TestSetMood_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		key   calendar.DateKey
		level int
	}{
		{"Level too low", "2026-02-18", 0},
		{"Level too high", "2026-02-18", 6},
		{"Malformed key", "2026-2-18", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			s := store.New(gw, signedIn())

			s.SetMood(context.Background(), tt.key, tt.level, "")

			st := s.Snapshot()
			assert.Empty(t, st.Entries)
			assert.NotEmpty(t, st.LastError)
			assert.False(t, st.IsSavingMood)
			gw.AssertNotCalled(t, "UpsertMood", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSetMood_SameKeyLastWriteWins(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	first, second := newGate(), newGate()
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
		Run(first.run).Return(mood.Record{Date: key, Level: 1}, nil)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 5}, token).
		Run(second.run).Return(mood.Record{Date: key, Level: 5}, nil)

	s := store.New(gw, signedIn())
	doneA := async(func() { s.SetMood(context.Background(), key, 1, "") })
	first.waitStarted(t)
	doneB := async(func() { s.SetMood(context.Background(), key, 5, "") })
	second.waitStarted(t)

	close(second.release)
	wait(t, doneB)
	assert.True(t, s.Snapshot().IsSavingMood, "first write still in flight")

	close(first.release)
	wait(t, doneA)

	st := s.Snapshot()
	assert.Equal(t, mood.Entry{Level: 5}, st.Entries[key])
	assert.False(t, st.IsSavingMood)
}

func TestSetMood_StaleFailureDoesNotRollBack(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	first := newGate()
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
		Run(first.run).Return(mood.Record{}, httpErr(http.StatusInternalServerError))
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 4}, token).
		Return(mood.Record{Date: key, Level: 4}, nil)

	s := store.New(gw, signedIn())
	doneA := async(func() { s.SetMood(context.Background(), key, 1, "") })
	first.waitStarted(t)
	s.SetMood(context.Background(), key, 4, "")

	close(first.release)
	wait(t, doneA)

	st := s.Snapshot()
	assert.Equal(t, mood.Entry{Level: 4}, st.Entries[key])
	assert.Empty(t, st.LastError)
}

func TestSetMood_OverlappingFailuresRestoreOriginal(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	tests := []struct {
		name   string
		before mood.Entries
	}{
		{"No entry before", mood.Entries{}},
		{"Confirmed entry before", mood.Entries{key: {Level: 3, Note: "calm"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := newGate()
			gw := new(MockGateway)
			gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 3, Note: "calm"}, token).
				Return(mood.Record{Date: key, Level: 3, Note: "calm"}, nil)
			gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
				Run(first.run).Return(mood.Record{}, httpErr(http.StatusInternalServerError))
			gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 5}, token).
				Return(mood.Record{}, httpErr(http.StatusInternalServerError))

			s := store.New(gw, signedIn())
			if len(tt.before) > 0 {
				s.SetMood(context.Background(), key, 3, "calm")
			}
			require.Equal(t, tt.before, s.Snapshot().Entries)

			doneA := async(func() { s.SetMood(context.Background(), key, 1, "") })
			first.waitStarted(t)
			s.SetMood(context.Background(), key, 5, "")
			assert.Equal(t, tt.before, s.Snapshot().Entries, "latest failure restores the value before both writes")

			close(first.release)
			wait(t, doneA)

			st := s.Snapshot()
			assert.Equal(t, tt.before, st.Entries)
			assert.NotEmpty(t, st.LastError)
			assert.False(t, st.IsSavingMood)
		})
	}
}

func TestSetMood_LatestFailureAdoptsOlderAcceptedWrite(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	first := newGate()
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
		Run(first.run).Return(mood.Record{Date: key, Level: 1}, nil)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 5}, token).
		Return(mood.Record{}, httpErr(http.StatusInternalServerError))

	s := store.New(gw, signedIn())
	doneA := async(func() { s.SetMood(context.Background(), key, 1, "") })
	first.waitStarted(t)
	s.SetMood(context.Background(), key, 5, "")
	assert.Empty(t, s.Snapshot().Entries)

	close(first.release)
	wait(t, doneA)

	st := s.Snapshot()
	assert.Equal(t, mood.Entries{key: {Level: 1}}, st.Entries, "the service kept the older write")
	assert.False(t, st.IsSavingMood)
}

func TestClearMood_OverlappingFailuresRestoreOriginal(t *testing.T) {
	key := calendar.DateKey("2026-02-18")
	first := newGate()
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 3}, token).
		Return(mood.Record{Date: key, Level: 3}, nil).Once()
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 2}, token).
		Run(first.run).Return(mood.Record{}, httpErr(http.StatusInternalServerError))
	gw.On("DeleteMood", mock.Anything, key, token).
		Return(httpErr(http.StatusInternalServerError))

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), key, 3, "")

	doneA := async(func() { s.SetMood(context.Background(), key, 2, "") })
	first.waitStarted(t)
	s.ClearMood(context.Background(), key)

	close(first.release)
	wait(t, doneA)

	assert.Equal(t, mood.Entries{key: {Level: 3}}, s.Snapshot().Entries)
}

func TestClearMood(t *testing.T) {
	key := calendar.DateKey("2026-02-18")

	t.Run("Absent key is a no-op", func(t *testing.T) {
		gw := new(MockGateway)
		s := store.New(gw, signedIn())
		ch, cancel := s.Subscribe()
		defer cancel()

		s.ClearMood(context.Background(), key)

		gw.AssertNotCalled(t, "DeleteMood", mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, ch, 0)
	})

	t.Run("Success removes the entry", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 3}, token).
			Return(mood.Record{Date: key, Level: 3}, nil)
		gw.On("DeleteMood", mock.Anything, key, token).Return(nil)
		s := store.New(gw, signedIn())
		s.SetMood(context.Background(), key, 3, "")

		s.ClearMood(context.Background(), key)

		st := s.Snapshot()
		assert.Empty(t, st.Entries)
		assert.Empty(t, st.LastError)
		assert.False(t, st.IsSavingMood)
	})

	t.Run("Failure restores the entry", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 3, Note: "n"}, token).
			Return(mood.Record{Date: key, Level: 3, Note: "n"}, nil)
		gw.On("DeleteMood", mock.Anything, key, token).Return(httpErr(http.StatusInternalServerError))
		s := store.New(gw, signedIn())
		s.SetMood(context.Background(), key, 3, "n")
		before := s.Snapshot().Entries

		s.ClearMood(context.Background(), key)

		st := s.Snapshot()
		assert.True(t, before.Equal(st.Entries))
		assert.Contains(t, st.LastError, "500")
	})

	t.Run("Deleted optimistically while in flight", func(t *testing.T) {
		g := newGate()
		gw := new(MockGateway)
		gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 3}, token).
			Return(mood.Record{Date: key, Level: 3}, nil)
		gw.On("DeleteMood", mock.Anything, key, token).Run(g.run).Return(nil)
		s := store.New(gw, signedIn())
		s.SetMood(context.Background(), key, 3, "")

		done := async(func() { s.ClearMood(context.Background(), key) })
		g.waitStarted(t)
		_, ok := s.Snapshot().Entries[key]
		assert.False(t, ok)
		assert.True(t, s.Snapshot().IsSavingMood)

		close(g.release)
		wait(t, done)
	})
}

// -----------------------------------------------------------------------------
// Theme
// -----------------------------------------------------------------------------

func TestUpdateThemeSettings_LastWriteWins(t *testing.T) {
	patchA := mood.ThemePatch{BgColor: strPtr("#aaaaaa")}
	patchB := mood.ThemePatch{BgColor: strPtr("#bbbbbb")}
	gateA, gateB := newGate(), newGate()

	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patchA, token).
		Run(gateA.run).Return(sampleTheme("#aaaaaa"), nil)
	gw.On("UpdateTheme", mock.Anything, patchB, token).
		Run(gateB.run).Return(sampleTheme("#bbbbbb"), nil)

	s := store.New(gw, signedIn())
	doneA := async(func() { s.UpdateThemeSettings(context.Background(), patchA) })
	gateA.waitStarted(t)
	assert.Equal(t, "#aaaaaa", s.Snapshot().Theme.BgColor)

	doneB := async(func() { s.UpdateThemeSettings(context.Background(), patchB) })
	gateB.waitStarted(t)
	assert.Equal(t, "#bbbbbb", s.Snapshot().Theme.BgColor)

	close(gateA.release)
	wait(t, doneA)
	st := s.Snapshot()
	assert.Equal(t, "#bbbbbb", st.Theme.BgColor, "stale response is discarded")
	assert.True(t, st.IsUpdatingTheme)

	close(gateB.release)
	wait(t, doneB)
	st = s.Snapshot()
	assert.Equal(t, sampleTheme("#bbbbbb"), st.Theme)
	assert.False(t, st.IsUpdatingTheme)
}

func TestUpdateThemeSettings_StaleFailureIsSilent(t *testing.T) {
	patchA := mood.ThemePatch{BgColor: strPtr("#aaaaaa")}
	patchB := mood.ThemePatch{BgColor: strPtr("#bbbbbb")}
	gateA := newGate()

	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patchA, token).
		Run(gateA.run).Return(mood.ThemeSettings{}, httpErr(http.StatusInternalServerError))
	gw.On("UpdateTheme", mock.Anything, patchB, token).
		Return(sampleTheme("#bbbbbb"), nil)

	s := store.New(gw, signedIn())
	doneA := async(func() { s.UpdateThemeSettings(context.Background(), patchA) })
	gateA.waitStarted(t)
	s.UpdateThemeSettings(context.Background(), patchB)

	close(gateA.release)
	wait(t, doneA)

	st := s.Snapshot()
	assert.Equal(t, "#bbbbbb", st.Theme.BgColor)
	assert.Empty(t, st.LastError)
	assert.False(t, st.IsUpdatingTheme)
}

func TestUpdateThemeSettings_OverlappingFailuresRestoreConfirmed(t *testing.T) {
	patchA := mood.ThemePatch{BgColor: strPtr("#aaaaaa")}
	patchB := mood.ThemePatch{BgColor: strPtr("#bbbbbb")}
	gateA := newGate()

	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patchA, token).
		Run(gateA.run).Return(mood.ThemeSettings{}, httpErr(http.StatusInternalServerError))
	gw.On("UpdateTheme", mock.Anything, patchB, token).
		Return(mood.ThemeSettings{}, httpErr(http.StatusInternalServerError))

	s := store.New(gw, signedIn())
	doneA := async(func() { s.UpdateThemeSettings(context.Background(), patchA) })
	gateA.waitStarted(t)
	s.UpdateThemeSettings(context.Background(), patchB)
	assert.Equal(t, mood.DefaultTheme(), s.Snapshot().Theme, "no rejected patch survives the rollback")

	close(gateA.release)
	wait(t, doneA)

	st := s.Snapshot()
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.NotEmpty(t, st.LastError)
	assert.False(t, st.IsUpdatingTheme)
}

func TestUpdateThemeSettings_LatestFailureAdoptsOlderConfirmed(t *testing.T) {
	patchA := mood.ThemePatch{BgColor: strPtr("#aaaaaa")}
	patchB := mood.ThemePatch{BgColor: strPtr("#bbbbbb")}
	gateA := newGate()

	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patchA, token).
		Run(gateA.run).Return(sampleTheme("#aaaaaa"), nil)
	gw.On("UpdateTheme", mock.Anything, patchB, token).
		Return(mood.ThemeSettings{}, httpErr(http.StatusInternalServerError))

	s := store.New(gw, signedIn())
	doneA := async(func() { s.UpdateThemeSettings(context.Background(), patchA) })
	gateA.waitStarted(t)
	s.UpdateThemeSettings(context.Background(), patchB)
	assert.Equal(t, mood.DefaultTheme(), s.Snapshot().Theme)

	close(gateA.release)
	wait(t, doneA)

	assert.Equal(t, sampleTheme("#aaaaaa"), s.Snapshot().Theme, "the service kept the older update")
}

func TestUpdateThemeSettings_MergesMoodColors(t *testing.T) {
	patch := mood.ThemePatch{MoodColors: map[int]string{3: "#123456"}}
	g := newGate()
	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patch, token).Run(g.run).Return(mood.DefaultTheme(), nil)

	s := store.New(gw, signedIn())
	done := async(func() { s.UpdateThemeSettings(context.Background(), patch) })
	g.waitStarted(t)

	colors := s.Snapshot().Theme.MoodColors
	assert.Equal(t, "#123456", colors.For(3))
	assert.Equal(t, config.DefaultMoodColors[0], colors.For(1))
	assert.Equal(t, config.DefaultMoodColors[4], colors.For(5))

	close(g.release)
	wait(t, done)
}

func TestUpdateThemeSettings_FailureRollsBack(t *testing.T) {
	patch := mood.ThemePatch{Columns: func() *int { n := 7; return &n }()}
	gw := new(MockGateway)
	gw.On("UpdateTheme", mock.Anything, patch, token).
		Return(mood.ThemeSettings{}, httpErr(http.StatusForbidden))

	s := store.New(gw, signedIn())
	s.UpdateThemeSettings(context.Background(), patch)

	st := s.Snapshot()
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.True(t, st.AuthRequired)
	assert.Contains(t, st.LastError, "403")
	assert.False(t, st.IsUpdatingTheme)
}

func TestUpdateThemeSettings_NoSession(t *testing.T) {
	gw := new(MockGateway)
	s := store.New(gw, session.NewMemoryProvider(nil))

	s.UpdateThemeSettings(context.Background(), mood.ThemePatch{BgColor: strPtr("#ffffff")})

	st := s.Snapshot()
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.True(t, st.AuthRequired)
	assert.Equal(t, config.ErrNoSession, st.LastError)
	assert.False(t, st.IsUpdatingTheme)
	gw.AssertNotCalled(t, "UpdateTheme", mock.Anything, mock.Anything, mock.Anything)
}

// -----------------------------------------------------------------------------
// Hydrate
// -----------------------------------------------------------------------------

func TestHydrate_Success(t *testing.T) {
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, calendar.DateKey("2025-12-31"), mood.Entry{Level: 2}, token).
		Return(mood.Record{Date: "2025-12-31", Level: 2}, nil)
	gw.On("UpsertMood", mock.Anything, calendar.DateKey("2026-01-05"), mood.Entry{Level: 1}, token).
		Return(mood.Record{Date: "2026-01-05", Level: 1}, nil)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).Return([]mood.Record{
		{Date: "2026-01-01", Level: 5, Note: "new year"},
		{Date: "2026-02-18", Level: 3},
	}, nil)
	gw.On("FetchTheme", mock.Anything, token).Return(sampleTheme("#101010"), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/abc", nil)

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), "2025-12-31", 2, "")
	s.SetMood(context.Background(), "2026-01-05", 1, "")

	s.Hydrate(context.Background(), 2026)

	st := s.Snapshot()
	assert.Equal(t, mood.Entries{
		"2025-12-31": {Level: 2},
		"2026-01-01": {Level: 5, Note: "new year"},
		"2026-02-18": {Level: 3},
	}, st.Entries, "only the requested year is replaced")
	assert.Equal(t, "#101010", st.Theme.BgColor)
	assert.Equal(t, "http://h/w/abc", st.WallpaperURL)
	assert.True(t, st.HasHydrated)
	assert.False(t, st.IsHydrating)
	assert.Empty(t, st.LastError)
	assert.False(t, st.AuthRequired)
}

func TestHydrate_NoSession(t *testing.T) {
	gw := new(MockGateway)
	s := store.New(gw, session.NewMemoryProvider(nil))

	s.Hydrate(context.Background(), 2026)

	st := s.Snapshot()
	assert.True(t, st.HasHydrated)
	assert.False(t, st.IsHydrating)
	assert.Empty(t, st.Entries)
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.Empty(t, st.LastError)
	assert.Empty(t, gw.Calls)
}

func TestHydrate_AuthorizationFailureResetsEverything(t *testing.T) {
	gw := new(MockGateway)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).Return(nil, httpErr(http.StatusUnauthorized))
	gw.On("FetchTheme", mock.Anything, token).Return(sampleTheme("#101010"), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/abc", nil)

	s := store.New(gw, signedIn())
	s.Hydrate(context.Background(), 2026)

	st := s.Snapshot()
	assert.True(t, st.AuthRequired)
	assert.Empty(t, st.Entries)
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.Empty(t, st.WallpaperURL)
	assert.Contains(t, st.LastError, "401")
	assert.True(t, st.HasHydrated)
	assert.False(t, st.IsHydrating)
}

func TestHydrate_ResourcesFailIndependently(t *testing.T) {
	gw := new(MockGateway)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).
		Return([]mood.Record{{Date: "2026-03-03", Level: 4}}, nil)
	gw.On("FetchTheme", mock.Anything, token).
		Return(mood.ThemeSettings{}, httpErr(http.StatusInternalServerError))
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/abc", nil)

	s := store.New(gw, signedIn())
	s.Hydrate(context.Background(), 2026)

	st := s.Snapshot()
	assert.Equal(t, mood.Entry{Level: 4}, st.Entries["2026-03-03"])
	assert.Equal(t, "http://h/w/abc", st.WallpaperURL)
	assert.Equal(t, mood.DefaultTheme(), st.Theme)
	assert.Contains(t, st.LastError, "500")
	assert.False(t, st.AuthRequired)
}

func TestHydrate_AppliesResultsAsTheyArrive(t *testing.T) {
	g := newGate()
	gw := new(MockGateway)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).
		Return([]mood.Record{{Date: "2026-03-03", Level: 4}}, nil)
	gw.On("FetchTheme", mock.Anything, token).Run(g.run).Return(sampleTheme("#101010"), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("", nil)

	s := store.New(gw, signedIn())
	done := async(func() { s.Hydrate(context.Background(), 2026) })
	g.waitStarted(t)

	assert.Eventually(t, func() bool {
		_, ok := s.Snapshot().Entries["2026-03-03"]
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.True(t, s.Snapshot().IsHydrating)

	close(g.release)
	wait(t, done)
	assert.Equal(t, "#101010", s.Snapshot().Theme.BgColor)
}

func TestHydrate_FirstErrorWins(t *testing.T) {
	g := newGate()
	gw := new(MockGateway)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).Return(nil, httpErr(http.StatusInternalServerError))
	gw.On("FetchTheme", mock.Anything, token).Return(mood.DefaultTheme(), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Run(g.run).Return("", httpErr(http.StatusBadGateway))

	s := store.New(gw, signedIn())
	done := async(func() { s.Hydrate(context.Background(), 2026) })
	g.waitStarted(t)
	require.Eventually(t, func() bool { return s.Snapshot().LastError != "" }, time.Second, 5*time.Millisecond)

	close(g.release)
	wait(t, done)
	assert.Contains(t, s.Snapshot().LastError, "500")
}

func TestHydrate_ClearsPreviousError(t *testing.T) {
	gw := new(MockGateway)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).Return([]mood.Record{}, nil)
	gw.On("FetchTheme", mock.Anything, token).Return(mood.DefaultTheme(), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("", nil)

	s := store.New(gw, signedIn())
	s.SetMood(context.Background(), "2026-01-01", 9, "")
	require.NotEmpty(t, s.Snapshot().LastError)

	s.Hydrate(context.Background(), 2026)
	assert.Empty(t, s.Snapshot().LastError)
}

func TestHydrate_KeepsInFlightMood(t *testing.T) {
	key := calendar.DateKey("2026-03-03")
	g := newGate()
	gw := new(MockGateway)
	gw.On("UpsertMood", mock.Anything, key, mood.Entry{Level: 1}, token).
		Run(g.run).Return(mood.Record{Date: key, Level: 1}, nil)
	gw.On("FetchYearMoods", mock.Anything, 2026, token).
		Return([]mood.Record{{Date: key, Level: 4}}, nil)
	gw.On("FetchTheme", mock.Anything, token).Return(mood.DefaultTheme(), nil)
	gw.On("FetchWallpaperURL", mock.Anything, token).Return("", nil)

	s := store.New(gw, signedIn())
	done := async(func() { s.SetMood(context.Background(), key, 1, "") })
	g.waitStarted(t)

	s.Hydrate(context.Background(), 2026)
	assert.Equal(t, mood.Entry{Level: 1}, s.Snapshot().Entries[key])

	close(g.release)
	wait(t, done)
}

// -----------------------------------------------------------------------------
// Refresh & rotation
// -----------------------------------------------------------------------------

func TestRefreshThemeAndToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("FetchTheme", mock.Anything, token).Return(sampleTheme("#202020"), nil)
		gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/new", nil)
		s := store.New(gw, signedIn())

		s.RefreshThemeAndToken(context.Background())

		st := s.Snapshot()
		assert.Equal(t, "#202020", st.Theme.BgColor)
		assert.Equal(t, "http://h/w/new", st.WallpaperURL)
	})

	t.Run("No session", func(t *testing.T) {
		gw := new(MockGateway)
		s := store.New(gw, session.NewMemoryProvider(nil))

		s.RefreshThemeAndToken(context.Background())

		st := s.Snapshot()
		assert.True(t, st.AuthRequired)
		assert.Equal(t, config.ErrNoSession, st.LastError)
		assert.Empty(t, gw.Calls)
	})

	t.Run("Newer theme update wins", func(t *testing.T) {
		g := newGate()
		patch := mood.ThemePatch{BgColor: strPtr("#cccccc")}
		gw := new(MockGateway)
		gw.On("FetchTheme", mock.Anything, token).Run(g.run).Return(sampleTheme("#202020"), nil)
		gw.On("FetchWallpaperURL", mock.Anything, token).Return("", nil)
		gw.On("UpdateTheme", mock.Anything, patch, token).Return(sampleTheme("#cccccc"), nil)
		s := store.New(gw, signedIn())

		done := async(func() { s.RefreshThemeAndToken(context.Background()) })
		g.waitStarted(t)
		s.UpdateThemeSettings(context.Background(), patch)
		close(g.release)
		wait(t, done)

		assert.Equal(t, "#cccccc", s.Snapshot().Theme.BgColor)
	})

	t.Run("Authorization failure", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("FetchTheme", mock.Anything, token).Return(mood.ThemeSettings{}, httpErr(http.StatusUnauthorized))
		gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/x", nil)
		s := store.New(gw, signedIn())

		s.RefreshThemeAndToken(context.Background())

		st := s.Snapshot()
		assert.True(t, st.AuthRequired)
		assert.Equal(t, mood.DefaultTheme(), st.Theme)
	})
}

func TestRotateWallpaperToken(t *testing.T) {
	t.Run("Old link shown until the new one arrives", func(t *testing.T) {
		g := newGate()
		gw := new(MockGateway)
		gw.On("FetchTheme", mock.Anything, token).Return(mood.DefaultTheme(), nil)
		gw.On("FetchWallpaperURL", mock.Anything, token).Return("http://h/w/old", nil)
		gw.On("RotateWallpaperURL", mock.Anything, token).Run(g.run).Return("http://h/w/new", nil)
		s := store.New(gw, signedIn())
		s.RefreshThemeAndToken(context.Background())

		done := async(func() { s.RotateWallpaperToken(context.Background()) })
		g.waitStarted(t)
		st := s.Snapshot()
		assert.True(t, st.IsRotatingToken)
		assert.Equal(t, "http://h/w/old", st.WallpaperURL)

		close(g.release)
		wait(t, done)
		st = s.Snapshot()
		assert.False(t, st.IsRotatingToken)
		assert.Equal(t, "http://h/w/new", st.WallpaperURL)
	})

	t.Run("Failure is recorded", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("RotateWallpaperURL", mock.Anything, token).Return("", httpErr(http.StatusForbidden))
		s := store.New(gw, signedIn())

		s.RotateWallpaperToken(context.Background())

		st := s.Snapshot()
		assert.True(t, st.AuthRequired)
		assert.Contains(t, st.LastError, "403")
		assert.False(t, st.IsRotatingToken)
	})

	t.Run("No session", func(t *testing.T) {
		gw := new(MockGateway)
		s := store.New(gw, session.NewMemoryProvider(nil))

		s.RotateWallpaperToken(context.Background())

		st := s.Snapshot()
		assert.True(t, st.AuthRequired)
		assert.False(t, st.IsRotatingToken)
		gw.AssertNotCalled(t, "RotateWallpaperURL", mock.Anything, mock.Anything)
	})
}

func TestTokenRefreshRotatesSession(t *testing.T) {
	gw := new(NotifyingGateway)
	sess := signedIn()
	store.New(gw, sess)
	require.NotNil(t, gw.refresh)

	gw.refresh("fresh")

	got, err := sess.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestWithRotatorOverridesProvider(t *testing.T) {
	gw := new(NotifyingGateway)
	target := session.NewMemoryProvider(nil)
	store.New(gw, signedIn(), store.WithRotator(target))

	gw.refresh("fresh")

	got, _ := target.AccessToken(context.Background())
	assert.Equal(t, "fresh", got)
}
