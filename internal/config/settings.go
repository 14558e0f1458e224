package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings holds the runtime configuration resolved from flags, environment,
// the optional .env file and the optional settings file.
type Settings struct {
	APIURL          string
	WallpaperURL    string // Base URL for wallpaper links, defaults to APIURL.
	Language        string
	FeedPort        string
	RefreshInterval time.Duration
}

// NewViper creates a viper instance preloaded with defaults and the lookup rules
// (settings file name, env prefix, search paths).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyWallpaperURL, "")
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyFeedPort, DefaultPort)
	v.SetDefault(KeyRefreshInterval, DefaultRefreshInterval)

	v.SetConfigName(SettingsFileName) // .yaml is implicit
	v.SetEnvPrefix(SettingsEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(SettingsPathEnv); override != "" {
		v.AddConfigPath(override)
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath("./")
	return v
}

// LoadEnvFile loads variables from a .env file in the working directory.
// A missing file is not an error.
func LoadEnvFile() error {
	if err := godotenv.Load(EnvFileName); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: %w", ErrEnvFile, err)
	}
	return nil
}

// LoadSettings reads the settings file (if any) and resolves the final values.
func LoadSettings(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		}
	}

	s := Settings{
		APIURL:          strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		WallpaperURL:    strings.TrimRight(strings.TrimSpace(v.GetString(KeyWallpaperURL)), "/"),
		Language:        strings.TrimSpace(v.GetString(KeyLanguage)),
		FeedPort:        strings.TrimSpace(v.GetString(KeyFeedPort)),
		RefreshInterval: v.GetDuration(KeyRefreshInterval),
	}
	if s.WallpaperURL == "" {
		s.WallpaperURL = s.APIURL
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.RefreshInterval <= 0 {
		s.RefreshInterval = DefaultRefreshInterval
	}
	if err := ValidatePort(s.FeedPort); err != nil {
		return Settings{}, err
	}

	slog.Debug(MsgSettingsLoaded,
		LogKeyComponent, CompMain,
		LogKeyURL, s.APIURL,
		LogKeyLang, s.Language,
		LogKeyPort, s.FeedPort,
		LogKeyInterval, s.RefreshInterval,
	)
	return s, nil
}

// ValidatePort checks that port is a number within the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}
