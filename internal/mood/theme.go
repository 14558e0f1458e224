package mood

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tartampluch/go-moodgrid/internal/config"
)

// Shape is the cell shape variant.
type Shape string

const (
	ShapeRounded Shape = "rounded"
	ShapeSquare  Shape = "square"
)

// Spacing is the gap between cells.
type Spacing string

const (
	SpacingTight  Spacing = "tight"
	SpacingMedium Spacing = "medium"
	SpacingWide   Spacing = "wide"
)

// Position is where the grid sits on the wallpaper.
type Position string

const (
	PositionClock  Position = "clock"
	PositionCenter Position = "center"
)

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool { return s == ShapeRounded || s == ShapeSquare }

// Valid reports whether s is a known spacing.
func (s Spacing) Valid() bool {
	return s == SpacingTight || s == SpacingMedium || s == SpacingWide
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool { return p == PositionClock || p == PositionCenter }

// MoodColors holds the color of each level, index 0 being level 1.
// The fixed size keeps the mapping complete.
type MoodColors [LevelCount]string

// For returns the color of level, or "" when the level is out of range.
func (c MoodColors) For(level int) string {
	if !ValidLevel(level) {
		return ""
	}
	return c[level-MinLevel]
}

// ThemeSettings describes how the grid is drawn. Colors are opaque #rrggbb
// strings. EmptyColor and BgImageURL are "" when unset.
type ThemeSettings struct {
	BgColor           string
	MoodColors        MoodColors
	EmptyColor        string
	Shape             Shape
	Spacing           Spacing
	Position          Position
	AvoidLockScreenUI bool
	Columns           int
	BgImageURL        string
}

// ThemePatch is a partial theme update. Nil fields are left untouched.
// A pointer to "" clears EmptyColor or BgImageURL.
type ThemePatch struct {
	BgColor           *string
	MoodColors        map[int]string
	EmptyColor        *string
	Shape             *Shape
	Spacing           *Spacing
	Position          *Position
	AvoidLockScreenUI *bool
	Columns           *int
	BgImageURL        *string
}

// DefaultTheme returns the theme used before hydration and after sign-out.
func DefaultTheme() ThemeSettings {
	return ThemeSettings{
		BgColor:    config.DefaultBgColor,
		MoodColors: MoodColors(config.DefaultMoodColors),
		Shape:      Shape(config.DefaultShape),
		Spacing:    Spacing(config.DefaultSpacing),
		Position:   Position(config.DefaultPosition),
		Columns:    config.DefaultColumns,
	}
}

// Apply merges p onto t and returns the result. Mood colors are merged level
// by level so the mapping stays complete. Invalid colors, unknown variants and
// non-positive column counts are ignored.
func (t ThemeSettings) Apply(p ThemePatch) ThemeSettings {
	next := t

	if p.BgColor != nil {
		if c, ok := NormalizeHexColor(*p.BgColor); ok {
			next.BgColor = c
		}
	}
	for level, color := range p.MoodColors {
		if !ValidLevel(level) {
			continue
		}
		if c, ok := NormalizeHexColor(color); ok {
			next.MoodColors[level-MinLevel] = c
		}
	}
	if p.EmptyColor != nil {
		if strings.TrimSpace(*p.EmptyColor) == "" {
			next.EmptyColor = ""
		} else if c, ok := NormalizeHexColor(*p.EmptyColor); ok {
			next.EmptyColor = c
		}
	}
	if p.Shape != nil && p.Shape.Valid() {
		next.Shape = *p.Shape
	}
	if p.Spacing != nil && p.Spacing.Valid() {
		next.Spacing = *p.Spacing
	}
	if p.Position != nil && p.Position.Valid() {
		next.Position = *p.Position
	}
	if p.AvoidLockScreenUI != nil {
		next.AvoidLockScreenUI = *p.AvoidLockScreenUI
	}
	if p.Columns != nil && *p.Columns > 0 {
		next.Columns = *p.Columns
	}
	if p.BgImageURL != nil {
		next.BgImageURL = strings.TrimSpace(*p.BgImageURL)
	}
	return next
}

// IsZero reports whether the patch changes nothing.
func (p ThemePatch) IsZero() bool {
	return p.BgColor == nil && len(p.MoodColors) == 0 && p.EmptyColor == nil &&
		p.Shape == nil && p.Spacing == nil && p.Position == nil &&
		p.AvoidLockScreenUI == nil && p.Columns == nil && p.BgImageURL == nil
}

// Complete fills any missing value of a server-provided theme with defaults.
func (t ThemeSettings) Complete() ThemeSettings {
	d := DefaultTheme()
	if c, ok := NormalizeHexColor(t.BgColor); ok {
		d.BgColor = c
	}
	for i, color := range t.MoodColors {
		if c, ok := NormalizeHexColor(color); ok {
			d.MoodColors[i] = c
		}
	}
	if c, ok := NormalizeHexColor(t.EmptyColor); ok {
		d.EmptyColor = c
	}
	if t.Shape.Valid() {
		d.Shape = t.Shape
	}
	if t.Spacing.Valid() {
		d.Spacing = t.Spacing
	}
	if t.Position.Valid() {
		d.Position = t.Position
	}
	if t.Columns > 0 {
		d.Columns = t.Columns
	}
	d.AvoidLockScreenUI = t.AvoidLockScreenUI
	d.BgImageURL = t.BgImageURL
	return d
}

// NormalizeHexColor accepts "#rrggbb" or "rrggbb" in any case and returns the
// lowercase "#rrggbb" form.
func NormalizeHexColor(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 6 {
		trimmed = "#" + trimmed
	}
	if len(trimmed) != 7 || trimmed[0] != '#' {
		return "", false
	}
	// colorful.Hex stops scanning at the first non-hex rune, so check all of them.
	for _, r := range trimmed[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}
	c, err := colorful.Hex(trimmed)
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}
