// Package cli wires the store and its collaborators into cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/gateway"
	"github.com/tartampluch/go-moodgrid/internal/i18n"
	"github.com/tartampluch/go-moodgrid/internal/session"
	"github.com/tartampluch/go-moodgrid/internal/store"
)

// SessionStore persists the session between runs.
type SessionStore interface {
	session.Provider
	session.Rotator
	Load() (*session.Session, error)
	Save(s session.Session) error
	Clear() error
	SetRefresher(r session.Refresher)
}

// App holds the dependencies shared by every command.
type App struct {
	Out      io.Writer
	Err      io.Writer
	Viper    *viper.Viper
	Clock    calendar.Clock
	Sessions SessionStore

	// NewGateway builds the remote gateway from the resolved settings.
	NewGateway func(s config.Settings) gateway.Gateway
	// SetupLogging is called once flags are parsed. The returned closer is
	// released by Close.
	SetupLogging func(debug bool) io.Closer

	settings config.Settings
	gw       gateway.Gateway
	tr       *i18n.Translator
	closer   io.Closer
	debug    bool
}

// NewApp returns an App using the OS keyring and the HTTP gateway.
func NewApp() *App {
	return &App{
		Out:      os.Stdout,
		Err:      os.Stderr,
		Viper:    config.NewViper(),
		Clock:    calendar.RealClock{},
		Sessions: session.NewKeyringProvider(),
		NewGateway: func(s config.Settings) gateway.Gateway {
			return gateway.NewHTTPGateway(s.APIURL, s.WallpaperURL)
		},
	}
}

// Close releases the log file opened by SetupLogging.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// NewRootCommand builds the command tree.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           config.CommandName,
		Short:         config.CmdDescRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	flags := root.PersistentFlags()
	flags.BoolVar(&a.debug, config.FlagDebug, false, config.FlagDescDebug)
	flags.String(config.FlagAPIURL, config.DefaultAPIURL, config.FlagDescAPIURL)
	flags.String(config.FlagLanguage, config.DefaultLanguage, config.FlagDescLanguage)
	_ = a.Viper.BindPFlag(config.KeyAPIURL, flags.Lookup(config.FlagAPIURL))
	_ = a.Viper.BindPFlag(config.KeyLanguage, flags.Lookup(config.FlagLanguage))

	addLogin(root, a)
	addLogout(root, a)
	addShow(root, a)
	addSet(root, a)
	addClear(root, a)
	addTheme(root, a)
	addRotate(root, a)
	addStats(root, a)
	addServe(root, a)
	addVersion(root, a)
	return root
}

func (a *App) init() error {
	if a.SetupLogging != nil && a.closer == nil {
		a.closer = a.SetupLogging(a.debug)
	}
	s, err := config.LoadSettings(a.Viper)
	if err != nil {
		return err
	}
	a.settings = s
	a.tr = i18n.New(s.Language)
	a.gw = a.NewGateway(s)
	if svc, ok := a.gw.(gateway.SessionService); ok {
		a.Sessions.SetRefresher(svc)
	}
	return nil
}

// newStore creates a fresh store for one command run.
func (a *App) newStore() *store.Store {
	return store.New(a.gw, a.Sessions)
}

// revokeSession ends the stored session on the service. A credential the
// service already rejects needs no revocation.
func (a *App) revokeSession(ctx context.Context) error {
	svc, ok := a.gw.(gateway.SessionService)
	if !ok {
		return nil
	}
	s, err := a.Sessions.Load()
	if err != nil || s == nil {
		return err
	}
	if err := svc.DeleteSession(ctx, s.AccessToken); err != nil && !gateway.IsAuthorization(err) {
		return fmt.Errorf("%s: %w", config.ErrSessionRevoke, err)
	}
	return nil
}

// outcome turns the failure state of the store into a command error.
func (a *App) outcome(st store.State) error {
	if st.AuthRequired {
		a.println(a.Err, a.tr.Msg(config.TKeyMsgAuthNeeded, nil))
	}
	if st.LastError != "" {
		slog.Warn(config.ErrOperationFailed,
			config.LogKeyComponent, config.CompCLI,
			config.LogKeyError, st.LastError,
		)
		return errors.New(st.LastError)
	}
	if st.AuthRequired {
		return errors.New(config.ErrAuthRequired)
	}
	return nil
}

func (a *App) println(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, msg)
}

// parseDay accepts YYYY-MM-DD or "today".
func (a *App) parseDay(arg string) (calendar.DateKey, error) {
	if strings.EqualFold(arg, config.ArgToday) {
		return calendar.KeyOf(a.Clock.Now()), nil
	}
	if _, err := calendar.ParseDateKey(arg); err != nil {
		return "", fmt.Errorf("%s: %q", config.ErrInvalidDateKey, arg)
	}
	return calendar.DateKey(arg), nil
}

func parseLevel(arg string) (int, error) {
	level, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.New(config.ErrInvalidLevel)
	}
	return level, nil
}

// yearOr returns year, or the current year when year is 0.
func (a *App) yearOr(year int) int {
	if year == 0 {
		return a.Clock.Now().Year()
	}
	return year
}
