package store

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// UpdateThemeSettings merges patch onto the current theme immediately and
// then adopts the server-confirmed theme.
//
// Several updates may be in flight; only the most recently issued one may
// confirm or roll back, so a slow earlier response never clobbers a later one.
// A rollback restores the last theme the service confirmed, never the
// optimistic value of an earlier update.
func (s *Store) UpdateThemeSettings(ctx context.Context, patch mood.ThemePatch) {
	log := slog.With(config.LogKeyComponent, config.CompStore)
	var id uint64

	runMutation(ctx, s, mutation[mood.ThemeSettings]{
		op:  "update_theme",
		log: log,
		apply: func(st *State) {
			if s.pendingTheme == 0 {
				s.themeBase = st.Theme
			}
			s.pendingTheme++
			s.themeReverted = false
			st.Theme = st.Theme.Apply(patch)
			st.IsUpdatingTheme = true
			id = s.themeSeq.next()
		},
		remote: func(ctx context.Context, token string) (mood.ThemeSettings, error) {
			return s.gateway.UpdateTheme(ctx, patch, token)
		},
		reconcile: func(st *State, confirmed mood.ThemeSettings) {
			st.Theme = confirmed
			s.themeBase = confirmed
		},
		rebase: func(st *State, confirmed mood.ThemeSettings) {
			s.themeBase = confirmed
			if s.themeReverted {
				st.Theme = confirmed
			}
		},
		revert: func(st *State) {
			st.Theme = s.themeBase
			s.themeReverted = true
		},
		latest: func() bool { return s.themeSeq.isLatest(id) },
		settle: func(st *State, latest bool) {
			s.pendingTheme--
			if latest {
				st.IsUpdatingTheme = false
			}
		},
	})
}

// RefreshThemeAndToken re-reads the theme and the wallpaper link. The theme
// read is dropped when a theme update was issued after the refresh began.
func (s *Store) RefreshThemeAndToken(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompStore)

	var seq uint64
	s.mu.Lock()
	seq = s.themeSeq.last
	s.mu.Unlock()

	token := s.accessToken(ctx)
	if token == "" {
		log.Warn(config.MsgNoToken, config.LogKeyOperation, "refresh")
		s.update(recordNoSession)
		return
	}

	var g errgroup.Group
	g.Go(func() error {
		theme, err := s.gateway.FetchTheme(ctx, token)
		s.update(func(st *State) {
			if err != nil {
				s.readFailed(st, log, config.ResourceTheme, err)
				return
			}
			if s.themeSeq.last != seq {
				log.Debug(config.MsgMutationStale, config.LogKeyResource, config.ResourceTheme)
				return
			}
			s.adoptTheme(st, theme)
		})
		return nil
	})
	g.Go(func() error {
		link, err := s.gateway.FetchWallpaperURL(ctx, token)
		s.update(func(st *State) {
			if err != nil {
				s.readFailed(st, log, config.ResourceWallpaper, err)
				return
			}
			st.WallpaperURL = link
		})
		return nil
	})
	_ = g.Wait()
}

// adoptTheme shows a theme read from the service. With updates in flight it
// also becomes their rollback target. Callers hold s.mu.
func (s *Store) adoptTheme(st *State, theme mood.ThemeSettings) {
	st.Theme = theme
	if s.pendingTheme > 0 {
		s.themeBase = theme
	}
}

// RotateWallpaperToken asks the service for a new wallpaper link. The old
// link stays visible until the new one arrives.
func (s *Store) RotateWallpaperToken(ctx context.Context) {
	log := slog.With(config.LogKeyComponent, config.CompStore)

	s.update(func(st *State) {
		s.pendingRotas++
		st.IsRotatingToken = true
	})
	settle := func(st *State) {
		s.pendingRotas--
		st.IsRotatingToken = s.pendingRotas > 0
	}

	token := s.accessToken(ctx)
	if token == "" {
		log.Warn(config.MsgNoToken, config.LogKeyOperation, "rotate")
		s.update(func(st *State) {
			recordNoSession(st)
			settle(st)
		})
		return
	}

	link, err := s.gateway.RotateWallpaperURL(ctx, token)
	s.update(func(st *State) {
		defer settle(st)
		if err != nil {
			s.readFailed(st, log, config.ResourceWallpaper, err)
			return
		}
		st.WallpaperURL = link
		log.Info(config.MsgWallpaperOK)
	})
}

// readFailed records the failure of a non-optimistic operation. Callers hold s.mu.
func (s *Store) readFailed(st *State, log *slog.Logger, resource string, err error) {
	log.Warn(config.MsgResourceFailed,
		config.LogKeyResource, resource,
		config.LogKeyError, err,
	)
	recordFailure(st, err)
}
