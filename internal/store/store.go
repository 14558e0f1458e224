package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/gateway"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/session"
)

// ErrNoSession is recorded when an operation needs a token and none is available.
var ErrNoSession = errors.New(config.ErrNoSession)

// Store reconciles local intent with the remote source of truth.
//
// Every operation blocks until its remote work settles and never returns an
// error: failures are recorded in State.LastError and State.AuthRequired.
// Callers that want fire-and-forget behavior run operations on goroutines.
// The state lock is never held across a session lookup or a gateway call, so
// overlapping operations interleave and completion order is not call order.
type Store struct {
	gateway  gateway.Gateway
	sessions session.Provider
	rotator  session.Rotator

	mu           sync.Mutex
	state        State
	themeSeq     sequence
	moodSeq      keyedSequence[calendar.DateKey]
	pendingMoods int
	pendingRotas int

	// Rollback targets while writes are in flight: the server-side value of
	// each date with a pending mood write and the last confirmed theme.
	moodFlights   map[calendar.DateKey]*moodFlight
	themeBase     mood.ThemeSettings
	pendingTheme  int
	themeReverted bool

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// Option customizes a Store.
type Option func(*Store)

// WithRotator sets who receives credentials refreshed by the gateway.
// By default the session provider is used when it implements session.Rotator.
func WithRotator(r session.Rotator) Option {
	return func(s *Store) { s.rotator = r }
}

// New creates a store with the default theme and no entries.
func New(gw gateway.Gateway, sessions session.Provider, opts ...Option) *Store {
	s := &Store{
		gateway:  gw,
		sessions: sessions,
		state:    initialState(),
		moodFlights: make(map[calendar.DateKey]*moodFlight),
		subs:     make(map[int]chan struct{}),
	}
	if r, ok := sessions.(session.Rotator); ok {
		s.rotator = r
	}
	for _, opt := range opts {
		opt(s)
	}
	if n, ok := gw.(gateway.RefreshNotifier); ok {
		n.OnTokenRefresh(s.rotateToken)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel signalled after every state change and a func
// that stops the subscription. Signals coalesce: a receiver that falls behind
// sees one pending signal and should read Snapshot.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, config.ChannelBufferSize)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// OpenMoodPicker selects key for editing.
func (s *Store) OpenMoodPicker(key calendar.DateKey) {
	s.update(func(st *State) { st.SelectedDateKey = key })
}

// CloseMoodPicker clears the selection.
func (s *Store) CloseMoodPicker() {
	s.update(func(st *State) { st.SelectedDateKey = "" })
}

// ClearError drops the last recorded error.
func (s *Store) ClearError() {
	s.update(func(st *State) { st.LastError = "" })
}

// MarkSignedIn clears AuthRequired right after a fresh session was established.
func (s *Store) MarkSignedIn() {
	s.update(func(st *State) { st.AuthRequired = false })
}

// update mutates the state under the lock and then notifies subscribers.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// accessToken asks the session provider for a token. Provider failures are
// logged and treated as a missing session.
func (s *Store) accessToken(ctx context.Context) string {
	if s.sessions == nil {
		slog.Error(config.ErrSessionMissing, config.LogKeyComponent, config.CompStore)
		return ""
	}
	token, err := s.sessions.AccessToken(ctx)
	if err != nil {
		slog.Warn(config.ErrSessionLoad,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyError, err,
		)
		return ""
	}
	return token
}

func (s *Store) rotateToken(token string) {
	if s.rotator == nil {
		return
	}
	if err := s.rotator.RotateAccessToken(token); err != nil {
		slog.Error(config.ErrTokenRotate,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyError, err,
		)
		return
	}
	slog.Info(config.MsgTokenRotated, config.LogKeyComponent, config.CompStore)
}

// resetRemote drops every value obtained from the service, rollback targets
// included. Callers hold s.mu.
func (s *Store) resetRemote(st *State) {
	st.resetRemote()
	s.themeBase = st.Theme
	for _, f := range s.moodFlights {
		f.base = baseEntry{}
	}
}

// recordFailure replaces LastError with err and flags authorization failures.
func recordFailure(st *State, err error) {
	st.LastError = err.Error()
	if gateway.IsAuthorization(err) {
		st.AuthRequired = true
	}
}

// recordNoSession is the outcome of every operation attempted without a token.
func recordNoSession(st *State) {
	st.LastError = ErrNoSession.Error()
	st.AuthRequired = true
}
