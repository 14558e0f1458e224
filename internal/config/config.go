package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-MoodGrid/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go MoodGrid"
	AppID             = "com.github.tartampluch.go-moodgrid"
	CommandName       = "go-moodgrid"
	KeyringService    = "com.github.tartampluch.go-moodgrid"
	KeyringUser       = "session"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagDebug     = "debug"
	FlagYear      = "year"
	FlagToken     = "token"
	FlagUser      = "user"
	FlagExpires   = "expires"
	FlagAPIURL    = "api-url"
	FlagLanguage  = "lang"
	FlagPort      = "port"
	FlagInterval  = "interval"
	FlagBg        = "bg"
	FlagEmpty     = "empty"
	FlagShape     = "shape"
	FlagSpacing   = "spacing"
	FlagPosition  = "position"
	FlagColumns   = "columns"
	FlagMoodColor = "mood-color"
	FlagAvoidUI   = "avoid-lock-screen-ui"
	FlagBgImage   = "bg-image"

	FlagDescDebug     = "Also write debug logs to stderr"
	FlagDescYear      = "Calendar year to load (defaults to the current year)"
	FlagDescToken     = "Bearer access token issued by the mood service"
	FlagDescUser      = "User identifier bound to the access token"
	FlagDescExpires   = "Optional session expiry (RFC3339)"
	FlagDescAPIURL    = "Base URL of the mood service API"
	FlagDescLanguage  = "Interface language (ISO 639-1)"
	FlagDescPort      = "Local port used to publish the journal feed"
	FlagDescInterval  = "Background refresh interval"
	FlagDescBg        = "Background color (#rrggbb)"
	FlagDescEmpty     = "Color for unlogged days (#rrggbb, empty string clears)"
	FlagDescShape     = "Cell shape (rounded|square)"
	FlagDescSpacing   = "Cell spacing (tight|medium|wide)"
	FlagDescPosition  = "Grid position (clock|center)"
	FlagDescColumns   = "Grid column count"
	FlagDescMoodColor = "Mood color override, repeatable (level=#rrggbb)"
	FlagDescAvoidUI   = "Keep the grid clear of lock screen widgets"
	FlagDescBgImage   = "Background image URL (empty string clears)"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// CLI Commands
// -----------------------------------------------------------------------------

const (
	CmdLogin   = "login"
	CmdLogout  = "logout"
	CmdShow    = "show"
	CmdSet     = "set <date> <level> [note...]"
	CmdClear   = "clear <date>"
	CmdTheme   = "theme"
	CmdRotate  = "rotate"
	CmdStats   = "stats"
	CmdServe   = "serve"
	CmdVersion = "version"

	CmdDescRoot    = "Keep a mood journal and see your year as a grid of colors"
	CmdDescLogin   = "Store the access token used to reach the mood service"
	CmdDescLogout  = "Forget the stored session"
	CmdDescShow    = "Show the mood grid of a year"
	CmdDescSet     = "Log the mood of a day (level 1 to 5)"
	CmdDescClear   = "Remove the mood logged for a day"
	CmdDescTheme   = "Show or change the wallpaper theme"
	CmdDescRotate  = "Issue a new private wallpaper link"
	CmdDescStats   = "Summarize a year of moods"
	CmdDescServe   = "Publish the journal as a calendar feed and keep it fresh"
	CmdDescVersion = "Print version information"

	// ArgToday can be used instead of a YYYY-MM-DD date.
	ArgToday = "today"
)

// -----------------------------------------------------------------------------
// Settings Keys (viper)
// -----------------------------------------------------------------------------

const (
	SettingsFileName  = ".go-moodgrid"
	SettingsEnvPrefix = "MOODGRID"
	SettingsPathEnv   = "MOODGRID_CONFIG_PATH"
	EnvFileName       = ".env"

	KeyAPIURL          = "api_url"
	KeyWallpaperURL    = "wallpaper_url"
	KeyLanguage        = "language"
	KeyFeedPort        = "feed_port"
	KeyRefreshInterval = "refresh_interval"
)

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyLevel1        = "level_1"
	TKeyLevel2        = "level_2"
	TKeyLevel3        = "level_3"
	TKeyLevel4        = "level_4"
	TKeyLevel5        = "level_5"
	TKeyEvtSummary    = "event_summary" // Requires Level, Name
	TKeyStatsLogged   = "stats_logged"
	TKeyStatsAverage  = "stats_average"
	TKeyStatsStreak   = "stats_streak"
	TKeyStatsLongest  = "stats_longest"
	TKeyStatsTop      = "stats_top"
	TKeyStatsLevel    = "stats_level"
	TKeyStatsCount    = "stats_count"
	TKeyMsgSaved      = "msg_saved"
	TKeyMsgCleared    = "msg_cleared"
	TKeyMsgTheme      = "msg_theme_updated"
	TKeyMsgRotated    = "msg_rotated"
	TKeyMsgSignedIn   = "msg_signed_in"
	TKeyMsgSignedOut  = "msg_signed_out"
	TKeyMsgRevokeFail = "msg_revoke_failed" // Requires Error
	TKeyMsgAuthNeeded = "msg_auth_required"
	TKeyMsgWallpaper  = "msg_wallpaper"
	TKeyMsgServing    = "msg_serving"
	TKeyMonthPrefix   = "month_"   // month_1 .. month_12
	TKeyWeekdayPrefix = "weekday_" // weekday_0 .. weekday_6
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultAPIURL          = "http://127.0.0.1:8000"
	DefaultPort            = "18081"
	DefaultRefreshInterval = 15 * time.Minute
	DefaultLanguage        = "en"
	UIDSalt                = "go-moodgrid-v1-" // Salt for deterministic UID generation
	MaxNoteLength          = 240

	// Default theme, mirrors the server-side defaults.
	DefaultBgColor  = "#0d1117"
	DefaultShape    = "rounded"
	DefaultSpacing  = "medium"
	DefaultPosition = "clock"
	DefaultColumns  = 14

	// WallpaperPathPrefix is appended to the wallpaper base URL before a bare token.
	WallpaperPathPrefix = "/w/"

	// SessionRefreshMargin renews a session this long before it expires.
	SessionRefreshMargin = 5 * time.Minute
)

// DefaultMoodColors lists the colors of levels 1..5.
var DefaultMoodColors = [5]string{"#ef4444", "#f97316", "#eab308", "#22c55e", "#3b82f6"}

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go MoodGrid//Feed//EN"
	ICalCalName = "Mood Journal"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "gomoodgrid"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDescription = "DESCRIPTION"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropCategories  = "CATEGORIES"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateKeyLayout = "2006-01-02"

	MinPort = 1
	MaxPort = 65535

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s"
	FormatUID       = "%s@%s"
	FormatCategory  = "mood-%d"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 4 * 1024 * 1024 // 4MB, a full year of moods is a few KB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteFeed           = "/moods.ics"

	// REST routes of the mood service.
	RouteMoods       = "/moods"
	RouteTheme       = "/theme"
	RouteToken       = "/token"
	RouteTokenRotate = "/token/rotate"
	QueryYear        = "year"

	// Session routes of the mood service.
	RouteSession        = "/auth/session"
	RouteSessionRefresh = "/auth/session/refresh"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderAccept          = "Accept"
	HeaderAuthorization   = "Authorization"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderRequestID       = "X-Request-ID"
	HeaderRefreshedToken  = "X-Refreshed-Access-Token"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	BearerPrefix        = "Bearer "
	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrNoSession       = "No active session. Please sign in again."
	ErrInvalidLevel    = "mood level must be an integer from 1 to 5"
	ErrInvalidDateKey  = "invalid date key, expected YYYY-MM-DD"
	ErrRequestFailed   = "request failed with status %d"
	ErrNetwork         = "network error"
	ErrDecodeResponse  = "failed to decode response body"
	ErrEncodeRequest   = "failed to encode request body"
	ErrSessionLoad     = "failed to load session"
	ErrSessionSave     = "failed to save session"
	ErrSessionDelete   = "failed to delete session"
	ErrSessionDecode   = "stored session is corrupted"
	ErrTokenEmpty      = "access token is empty"
	ErrTokenRotate     = "failed to rotate access token"
	ErrRotateSignedOut = "cannot rotate the token of a signed-out session"
	ErrSessionRefresh  = "failed to renew session"
	ErrSessionRevoke   = "failed to end server session"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrPortNumber      = "server port must be a number"
	ErrPortRange       = "server port must be between 1 and 65535"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrSettingsRead    = "failed to read settings file"
	ErrEnvFile         = "failed to load .env file"
	ErrScheduler       = "failed to create scheduler"
	ErrSchedulerJob    = "failed to register scheduled job"
	ErrMoodColorFlag   = "mood color must look like level=#rrggbb"
	ErrThemeValue      = "invalid theme value"
	ErrExpiresFlag     = "expiry must be an RFC3339 timestamp"
	ErrOperationFailed = "operation failed"
	ErrAuthRequired    = "authentication required"
	ErrSessionMissing  = "internal error: session provider is not initialized"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary = "Mood: %d/5"

	// StubVCalendar is the minimal valid iCalendar object used when no entries exist.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgAppStop        = "Application stopped gracefully"
	MsgAppStarting    = "Starting application"
	MsgHydrateStart   = "Hydration started"
	MsgHydrateDone    = "Hydration finished"
	MsgHydrateNoToken = "No session, hydrating signed-out defaults"
	MsgResourceFailed = "Resource fetch failed"
	MsgAuthFailure    = "Authorization failure, resetting remote state"
	MsgMutationStale  = "Discarding stale mutation result"
	MsgMutationFailed = "Mutation failed, rolled back"
	MsgMutationOK     = "Mutation confirmed by server"
	MsgNoToken        = "No session token, rolling back"
	MsgTokenRotated   = "Access token rotated"
	MsgSessionRenewed = "Session renewed by the service"
	MsgSessionRevoked = "Server session revoked"
	MsgWallpaperOK    = "Wallpaper token rotated"
	MsgRequest        = "Gateway request"
	MsgRequestFailed  = "Gateway returned error status"
	MsgWorkerStart    = "Background worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgJobRun         = "Scheduled refresh running"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgFeedBuilt      = "Feed generation successful"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgSettingsLoaded = "Settings loaded"
	MsgCtxCancel      = "Context cancelled, shutting down"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyMethod    = "method"
	LogKeyStatus    = "status_code"
	LogKeyRequestID = "request_id"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyInterval  = "interval"
	LogKeyYear      = "year"
	LogKeyDateKey   = "date_key"
	LogKeyLevel     = "level"
	LogKeyResource  = "resource"
	LogKeyCount     = "count"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyOperation = "operation"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyDate    = "build_date"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompStore   = "store"
	CompGateway = "gateway"
	CompSession = "session"
	CompFeed    = "feed"
	CompServer  = "server"
	CompWorker  = "worker"
	CompMain    = "main"
	CompCLI     = "cli"
	CompI18n    = "i18n"
)

// Resource names used in logs.
const (
	ResourceMoods     = "moods"
	ResourceTheme     = "theme"
	ResourceWallpaper = "wallpaper"
)
