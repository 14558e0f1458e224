// Package i18n loads the embedded translations.
package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
	languages  []string
)

// loadBundle reads every locales/active.<lang>.json file once.
func loadBundle() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if _, err := language.Parse(langCode); err != nil {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		languages = append(languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}
	sort.Strings(languages)
}

// Languages lists the available translations.
func Languages() []string {
	bundleOnce.Do(loadBundle)
	return append([]string(nil), languages...)
}

// Translator resolves message keys for one language, falling back to English.
type Translator struct {
	localizer *i18n.Localizer
}

// New returns a translator for lang, e.g. "fr" or "fr-CA".
func New(lang string) *Translator {
	bundleOnce.Do(loadBundle)
	if lang == "" {
		lang = config.DefaultLanguage
	}
	return &Translator{localizer: i18n.NewLocalizer(bundle, lang, config.DefaultLanguage)}
}

// Msg translates key, filling template fields from data. Unknown keys are
// returned as is.
func (t *Translator) Msg(key string, data map[string]any) string {
	if t == nil || t.localizer == nil {
		return key
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: key, TemplateData: data})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Month returns the short name of m.
func (t *Translator) Month(m time.Month) string {
	return t.Msg(config.TKeyMonthPrefix+strconv.Itoa(int(m)), nil)
}

// Weekday returns the short name of d.
func (t *Translator) Weekday(d time.Weekday) string {
	return t.Msg(config.TKeyWeekdayPrefix+strconv.Itoa(int(d)), nil)
}

var levelKeys = [...]string{
	config.TKeyLevel1,
	config.TKeyLevel2,
	config.TKeyLevel3,
	config.TKeyLevel4,
	config.TKeyLevel5,
}

// LevelName returns the label of a mood level, or its number when out of range.
func (t *Translator) LevelName(level int) string {
	if level < 1 || level > len(levelKeys) {
		return strconv.Itoa(level)
	}
	return t.Msg(levelKeys[level-1], nil)
}

// EventSummary is the feed title of a day logged at level.
func (t *Translator) EventSummary(level int) string {
	return t.Msg(config.TKeyEvtSummary, map[string]any{
		"Name":  t.LevelName(level),
		"Level": level,
	})
}
