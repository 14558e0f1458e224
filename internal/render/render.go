// Package render prints the mood grid and statistics to a terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/i18n"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/stats"
)

const (
	glyphRounded = "●"
	glyphSquare  = "■"
	glyphToday   = "◆"
	glyphFuture  = "·"
	glyphBlank   = " "

	// fallbackEmpty colors unlogged past days when the theme has no empty color.
	fallbackEmpty = "#30363d"

	labelWidth = 5
)

// Grid prints grid with one row per weekday and one column per week.
// Logged days use the theme color of their level.
func Grid(w io.Writer, grid calendar.Grid, entries mood.Entries, theme mood.ThemeSettings, tr *i18n.Translator) error {
	glyph := glyphRounded
	if theme.Shape == mood.ShapeSquare {
		glyph = glyphSquare
	}
	gap := gapOf(theme.Spacing)
	cellWidth := 1 + len(gap)

	empty := paint(theme.EmptyColor)
	if theme.EmptyColor == "" {
		empty = paint(fallbackEmpty)
	}
	levels := make([]*color.Color, mood.LevelCount)
	for i := range levels {
		levels[i] = paint(theme.MoodColors[i])
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth))
	b.WriteString(monthHeader(grid, cellWidth, tr))
	b.WriteString("\n")

	for day := time.Sunday; day <= time.Saturday; day++ {
		fmt.Fprintf(&b, "%-*s", labelWidth, tr.Weekday(day))
		for _, week := range grid.Weeks {
			cell := week[day]
			switch {
			case cell == nil:
				b.WriteString(glyphBlank)
			case cell.IsFuture:
				b.WriteString(glyphFuture)
			default:
				g := glyph
				if cell.IsToday {
					g = glyphToday
				}
				if e, ok := entries[cell.DateKey]; ok && mood.ValidLevel(e.Level) {
					b.WriteString(levels[e.Level-mood.MinLevel].Sprint(g))
				} else {
					b.WriteString(empty.Sprint(g))
				}
			}
			b.WriteString(gap)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// monthHeader places each month label above the column of its 1st day,
// dropping labels that would overlap the previous one.
func monthHeader(grid calendar.Grid, cellWidth int, tr *i18n.Translator) string {
	line := []rune(strings.Repeat(" ", len(grid.Weeks)*cellWidth))
	next := 0
	for _, ml := range grid.MonthLabels {
		pos := ml.Week * cellWidth
		label := []rune(tr.Month(ml.Month))
		if pos < next || pos+len(label) > len(line) {
			continue
		}
		copy(line[pos:], label)
		next = pos + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

// Stats prints the yearly summary and the per-level and per-month breakdown.
func Stats(w io.Writer, sum stats.Summary, months [12]stats.Month, theme mood.ThemeSettings, tr *i18n.Translator) error {
	overview := uitable.New()
	overview.Separator = "  "
	overview.AddRow(tr.Msg(config.TKeyStatsLogged, nil), sum.Logged)
	overview.AddRow(tr.Msg(config.TKeyStatsAverage, nil), fmt.Sprintf("%.2f", sum.Average))
	overview.AddRow(tr.Msg(config.TKeyStatsStreak, nil), sum.CurrentStreak)
	overview.AddRow(tr.Msg(config.TKeyStatsLongest, nil), sum.LongestStreak)
	top := "-"
	if sum.TopLevel != 0 {
		top = tr.LevelName(sum.TopLevel)
	}
	overview.AddRow(tr.Msg(config.TKeyStatsTop, nil), top)

	levels := uitable.New()
	levels.Separator = "  "
	levels.AddRow(tr.Msg(config.TKeyStatsLevel, nil), "", tr.Msg(config.TKeyStatsCount, nil))
	for i, n := range sum.Counts {
		level := i + mood.MinLevel
		swatch := paint(theme.MoodColors.For(level)).Sprint(glyphSquare)
		levels.AddRow(tr.LevelName(level), swatch, n)
	}

	byMonth := uitable.New()
	byMonth.Separator = "  "
	for _, m := range months {
		avg := "-"
		if m.Logged > 0 {
			avg = fmt.Sprintf("%.1f", m.Average)
		}
		byMonth.AddRow(tr.Month(m.Month), m.Logged, avg)
	}

	_, err := fmt.Fprintf(w, "%s\n\n%s\n\n%s\n", overview, levels, byMonth)
	return err
}

// Theme prints every theme property, with a swatch next to each color.
func Theme(w io.Writer, theme mood.ThemeSettings, tr *i18n.Translator) error {
	swatch := func(hex string) string {
		if hex == "" {
			return "-"
		}
		return paint(hex).Sprint(glyphSquare) + " " + hex
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(config.FlagBg, swatch(theme.BgColor))
	for i, c := range theme.MoodColors {
		tbl.AddRow(tr.LevelName(i+mood.MinLevel), swatch(c))
	}
	tbl.AddRow(config.FlagEmpty, swatch(theme.EmptyColor))
	tbl.AddRow(config.FlagShape, theme.Shape)
	tbl.AddRow(config.FlagSpacing, theme.Spacing)
	tbl.AddRow(config.FlagPosition, theme.Position)
	tbl.AddRow(config.FlagColumns, theme.Columns)
	tbl.AddRow(config.FlagAvoidUI, theme.AvoidLockScreenUI)
	bgImage := theme.BgImageURL
	if bgImage == "" {
		bgImage = "-"
	}
	tbl.AddRow(config.FlagBgImage, bgImage)

	_, err := fmt.Fprintln(w, tbl)
	return err
}

// paint returns a 24-bit foreground for a #rrggbb color. Invalid colors print
// unstyled.
func paint(hex string) *color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.New(color.Reset)
	}
	r, g, b := c.RGB255()
	return color.RGB(int(r), int(g), int(b))
}

func gapOf(s mood.Spacing) string {
	switch s {
	case mood.SpacingTight:
		return ""
	case mood.SpacingWide:
		return "  "
	default:
		return " "
	}
}
