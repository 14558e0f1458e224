package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/feed"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/render"
	"github.com/tartampluch/go-moodgrid/internal/server"
	"github.com/tartampluch/go-moodgrid/internal/session"
	"github.com/tartampluch/go-moodgrid/internal/stats"
	"github.com/tartampluch/go-moodgrid/internal/store"
	"github.com/tartampluch/go-moodgrid/internal/worker"
	"golang.org/x/sync/errgroup"
)

func addLogin(root *cobra.Command, a *App) {
	var token, user, expires string

	cmd := &cobra.Command{
		Use:   config.CmdLogin,
		Short: config.CmdDescLogin,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := session.Session{AccessToken: token, UserID: user}
			if expires != "" {
				at, err := time.Parse(time.RFC3339, expires)
				if err != nil {
					return fmt.Errorf("%s: %w", config.ErrExpiresFlag, err)
				}
				s.ExpiresAt = &at
			}
			if err := a.Sessions.Save(s); err != nil {
				return err
			}
			a.println(a.Out, a.tr.Msg(config.TKeyMsgSignedIn, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, config.FlagToken, "", config.FlagDescToken)
	cmd.Flags().StringVar(&user, config.FlagUser, "", config.FlagDescUser)
	cmd.Flags().StringVar(&expires, config.FlagExpires, "", config.FlagDescExpires)
	_ = cmd.MarkFlagRequired(config.FlagToken)
	root.AddCommand(cmd)
}

func addLogout(root *cobra.Command, a *App) {
	root.AddCommand(&cobra.Command{
		Use:   config.CmdLogout,
		Short: config.CmdDescLogout,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.revokeSession(cmd.Context()); err != nil {
				slog.Warn(config.ErrSessionRevoke,
					config.LogKeyComponent, config.CompCLI,
					config.LogKeyError, err,
				)
				a.println(a.Err, a.tr.Msg(config.TKeyMsgRevokeFail, map[string]any{"Error": err.Error()}))
			}
			if err := a.Sessions.Clear(); err != nil {
				return err
			}
			a.println(a.Out, a.tr.Msg(config.TKeyMsgSignedOut, nil))
			return nil
		},
	})
}

func addShow(root *cobra.Command, a *App) {
	var year int

	cmd := &cobra.Command{
		Use:   config.CmdShow,
		Short: config.CmdDescShow,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			year := a.yearOr(year)
			s := a.newStore()
			s.Hydrate(ctx, year)

			st := s.Snapshot()
			if err := a.outcome(st); err != nil {
				return err
			}
			grid := calendar.BuildYearGrid(year, a.Clock.Now())
			if err := render.Grid(a.Out, grid, st.Entries, st.Theme, a.tr); err != nil {
				return err
			}
			if st.WallpaperURL != "" {
				a.println(a.Out, a.tr.Msg(config.TKeyMsgWallpaper, map[string]any{"URL": st.WallpaperURL}))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, config.FlagYear, 0, config.FlagDescYear)
	root.AddCommand(cmd)
}

func addSet(root *cobra.Command, a *App) {
	root.AddCommand(&cobra.Command{
		Use:   config.CmdSet,
		Short: config.CmdDescSet,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.parseDay(args[0])
			if err != nil {
				return err
			}
			level, err := parseLevel(args[1])
			if err != nil {
				return err
			}
			note := strings.Join(args[2:], " ")

			s := a.newStore()
			s.SetMood(cmd.Context(), key, level, note)
			if err := a.outcome(s.Snapshot()); err != nil {
				return err
			}
			a.println(a.Out, a.tr.Msg(config.TKeyMsgSaved, map[string]any{"Date": string(key)}))
			return nil
		},
	})
}

func addClear(root *cobra.Command, a *App) {
	root.AddCommand(&cobra.Command{
		Use:   config.CmdClear,
		Short: config.CmdDescClear,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, err := a.parseDay(args[0])
			if err != nil {
				return err
			}

			// A fresh store knows no entries, so load the year first.
			s := a.newStore()
			s.Hydrate(ctx, key.Year())
			if err := a.outcome(s.Snapshot()); err != nil {
				return err
			}
			s.ClearMood(ctx, key)
			if err := a.outcome(s.Snapshot()); err != nil {
				return err
			}
			a.println(a.Out, a.tr.Msg(config.TKeyMsgCleared, map[string]any{"Date": string(key)}))
			return nil
		},
	})
}

// themeOptions mirrors the theme flags.
type themeOptions struct {
	bg, empty, shape, spacing, position, bgImage string
	columns                                      int
	avoidUI                                      bool
	moodColors                                   []string
}

// patch builds a ThemePatch from the flags that were set.
func (o *themeOptions) patch(cmd *cobra.Command) (mood.ThemePatch, bool, error) {
	var p mood.ThemePatch
	changed := cmd.Flags().Changed

	if changed(config.FlagBg) {
		p.BgColor = &o.bg
	}
	if changed(config.FlagEmpty) {
		p.EmptyColor = &o.empty
	}
	if changed(config.FlagShape) {
		v := mood.Shape(o.shape)
		if !v.Valid() {
			return p, false, fmt.Errorf("%s: %q", config.ErrThemeValue, o.shape)
		}
		p.Shape = &v
	}
	if changed(config.FlagSpacing) {
		v := mood.Spacing(o.spacing)
		if !v.Valid() {
			return p, false, fmt.Errorf("%s: %q", config.ErrThemeValue, o.spacing)
		}
		p.Spacing = &v
	}
	if changed(config.FlagPosition) {
		v := mood.Position(o.position)
		if !v.Valid() {
			return p, false, fmt.Errorf("%s: %q", config.ErrThemeValue, o.position)
		}
		p.Position = &v
	}
	if changed(config.FlagColumns) {
		if o.columns <= 0 {
			return p, false, fmt.Errorf("%s: %d", config.ErrThemeValue, o.columns)
		}
		p.Columns = &o.columns
	}
	if changed(config.FlagAvoidUI) {
		p.AvoidLockScreenUI = &o.avoidUI
	}
	if changed(config.FlagBgImage) {
		p.BgImageURL = &o.bgImage
	}
	for _, raw := range o.moodColors {
		level, hex, err := parseMoodColor(raw)
		if err != nil {
			return p, false, err
		}
		if p.MoodColors == nil {
			p.MoodColors = make(map[int]string)
		}
		p.MoodColors[level] = hex
	}

	for _, hex := range []*string{p.BgColor, p.EmptyColor} {
		if hex == nil || *hex == "" {
			continue
		}
		if _, ok := mood.NormalizeHexColor(*hex); !ok {
			return p, false, fmt.Errorf("%s: %q", config.ErrThemeValue, *hex)
		}
	}
	return p, !p.IsZero(), nil
}

// parseMoodColor reads "level=#rrggbb".
func parseMoodColor(raw string) (int, string, error) {
	levelStr, hex, ok := strings.Cut(raw, "=")
	if !ok {
		return 0, "", fmt.Errorf("%s: %q", config.ErrMoodColorFlag, raw)
	}
	level, err := strconv.Atoi(strings.TrimSpace(levelStr))
	if err != nil || !mood.ValidLevel(level) {
		return 0, "", fmt.Errorf("%s: %q", config.ErrMoodColorFlag, raw)
	}
	norm, ok := mood.NormalizeHexColor(hex)
	if !ok {
		return 0, "", fmt.Errorf("%s: %q", config.ErrMoodColorFlag, raw)
	}
	return level, norm, nil
}

func addTheme(root *cobra.Command, a *App) {
	o := &themeOptions{}

	cmd := &cobra.Command{
		Use:   config.CmdTheme,
		Short: config.CmdDescTheme,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, set, err := o.patch(cmd)
			if err != nil {
				return err
			}

			s := a.newStore()
			if set {
				s.UpdateThemeSettings(cmd.Context(), patch)
			} else {
				s.RefreshThemeAndToken(cmd.Context())
			}
			st := s.Snapshot()
			if err := a.outcome(st); err != nil {
				return err
			}
			if err := render.Theme(a.Out, st.Theme, a.tr); err != nil {
				return err
			}
			if set {
				a.println(a.Out, a.tr.Msg(config.TKeyMsgTheme, nil))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.bg, config.FlagBg, "", config.FlagDescBg)
	f.StringVar(&o.empty, config.FlagEmpty, "", config.FlagDescEmpty)
	f.StringVar(&o.shape, config.FlagShape, "", config.FlagDescShape)
	f.StringVar(&o.spacing, config.FlagSpacing, "", config.FlagDescSpacing)
	f.StringVar(&o.position, config.FlagPosition, "", config.FlagDescPosition)
	f.IntVar(&o.columns, config.FlagColumns, 0, config.FlagDescColumns)
	f.BoolVar(&o.avoidUI, config.FlagAvoidUI, false, config.FlagDescAvoidUI)
	f.StringVar(&o.bgImage, config.FlagBgImage, "", config.FlagDescBgImage)
	f.StringArrayVar(&o.moodColors, config.FlagMoodColor, nil, config.FlagDescMoodColor)
	root.AddCommand(cmd)
}

func addRotate(root *cobra.Command, a *App) {
	root.AddCommand(&cobra.Command{
		Use:   config.CmdRotate,
		Short: config.CmdDescRotate,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newStore()
			s.RotateWallpaperToken(cmd.Context())
			st := s.Snapshot()
			if err := a.outcome(st); err != nil {
				return err
			}
			a.println(a.Out, a.tr.Msg(config.TKeyMsgRotated, nil))
			if st.WallpaperURL != "" {
				a.println(a.Out, a.tr.Msg(config.TKeyMsgWallpaper, map[string]any{"URL": st.WallpaperURL}))
			}
			return nil
		},
	})
}

func addStats(root *cobra.Command, a *App) {
	var year int

	cmd := &cobra.Command{
		Use:   config.CmdStats,
		Short: config.CmdDescStats,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			year := a.yearOr(year)
			s := a.newStore()
			s.Hydrate(ctx, year)

			st := s.Snapshot()
			if err := a.outcome(st); err != nil {
				return err
			}
			return render.Stats(a.Out,
				stats.Summarize(st.Entries, year, a.Clock.Now()),
				stats.ByMonth(st.Entries, year),
				st.Theme,
				a.tr,
			)
		},
	}
	cmd.Flags().IntVar(&year, config.FlagYear, 0, config.FlagDescYear)
	root.AddCommand(cmd)
}

func addServe(root *cobra.Command, a *App) {
	cmd := &cobra.Command{
		Use:   config.CmdServe,
		Short: config.CmdDescServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			srv := server.NewFeedServer(a.settings.FeedPort)
			srv.Clock = a.Clock
			gen := &feed.Generator{Clock: a.Clock, FormatSummary: a.tr.EventSummary}
			s := a.newStore()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.Start(ctx) })
			g.Go(func() error {
				return worker.Run(ctx, a.settings.RefreshInterval, worker.Job{
					Name: config.CmdServe,
					Run:  func(ctx context.Context) { a.refreshFeed(ctx, s, gen, srv) },
				})
			})

			url := config.SchemeHTTP + "://" + net.JoinHostPort(config.LocalhostBindAddr, a.settings.FeedPort) + config.RouteFeed
			a.println(a.Out, a.tr.Msg(config.TKeyMsgServing, map[string]any{"URL": url}))
			return g.Wait()
		},
	}

	f := cmd.Flags()
	f.String(config.FlagPort, config.DefaultPort, config.FlagDescPort)
	f.Duration(config.FlagInterval, config.DefaultRefreshInterval, config.FlagDescInterval)
	_ = a.Viper.BindPFlag(config.KeyFeedPort, f.Lookup(config.FlagPort))
	_ = a.Viper.BindPFlag(config.KeyRefreshInterval, f.Lookup(config.FlagInterval))
	root.AddCommand(cmd)
}

// refreshFeed reloads the current year and republishes the feed. A failed
// refresh keeps the previously published feed.
func (a *App) refreshFeed(ctx context.Context, s *store.Store, gen *feed.Generator, srv *server.FeedServer) {
	s.Hydrate(ctx, a.Clock.Now().Year())
	st := s.Snapshot()
	if st.AuthRequired || st.LastError != "" {
		slog.Warn(config.ErrOperationFailed,
			config.LogKeyComponent, config.CompCLI,
			config.LogKeyError, st.LastError,
		)
		return
	}

	data, err := gen.Build(ctx, st.Entries)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error(config.ErrICalEncode,
				config.LogKeyComponent, config.CompCLI,
				config.LogKeyError, err,
			)
		}
		return
	}
	srv.Update(data)
}

func addVersion(root *cobra.Command, a *App) {
	root.AddCommand(&cobra.Command{
		Use:   config.CmdVersion,
		Short: config.CmdDescVersion,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.Out, config.MsgVersionOutput,
				config.AppName,
				config.Version,
				runtime.GOOS,
				runtime.GOARCH,
			)
			return err
		},
	})
}

// requireSession stops read commands early when nobody is signed in, since
// hydration without a session quietly yields an empty journal.
func (a *App) requireSession(ctx context.Context) error {
	token, err := a.Sessions.AccessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		a.println(a.Err, a.tr.Msg(config.TKeyMsgAuthNeeded, nil))
		return store.ErrNoSession
	}
	return nil
}
