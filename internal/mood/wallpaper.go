package mood

import (
	"net/url"
	"strings"

	"github.com/tartampluch/go-moodgrid/internal/config"
)

// ResolveWallpaperURL returns the delivery URL of a wallpaper. An absolute URL
// supplied by the service wins; otherwise a bare token is substituted into
// base. Both empty yields "".
func ResolveWallpaperURL(base, token, rawURL string) string {
	if u := strings.TrimSpace(rawURL); u != "" {
		if parsed, err := url.Parse(u); err == nil && parsed.IsAbs() {
			return u
		}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + config.WallpaperPathPrefix + url.PathEscape(token)
}
