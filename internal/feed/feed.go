// Package feed exports the mood journal as an iCalendar subscription.
package feed

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// Generator turns mood entries into an iCalendar document.
type Generator struct {
	Clock calendar.Clock // Interface for time mocking.

	// FormatSummary allows the caller to inject localized event titles.
	FormatSummary func(level int) string
}

// Build returns one all-day event per logged day, in chronological order.
// An empty journal yields a valid empty calendar.
func (g *Generator) Build(ctx context.Context, entries mood.Entries) ([]byte, error) {
	log := slog.With(config.LogKeyComponent, config.CompFeed)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(g.now().UTC())

	for _, key := range entries.SortedKeys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day, err := calendar.ParseDateKey(string(key))
		if err != nil {
			log.Debug(config.ErrInvalidDateKey, config.LogKeyDateKey, string(key))
			continue
		}
		entry := entries[key]
		if !mood.ValidLevel(entry.Level) {
			continue
		}

		event := g.event(key, day, entry)
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		log.Info(config.MsgFeedBuilt, config.LogKeyCount, 0)
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	log.Info(config.MsgFeedBuilt,
		config.LogKeyCount, len(cal.Children),
		config.LogKeySizeBytes, buf.Len(),
	)
	return buf.Bytes(), nil
}

func (g *Generator) event(key calendar.DateKey, day time.Time, entry mood.Entry) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, UID(key))

	summary := fmt.Sprintf(config.FallbackSummary, entry.Level)
	if g.FormatSummary != nil {
		summary = g.FormatSummary(entry.Level)
	}
	event.Props.SetText(config.PropSummary, summary)
	if entry.Note != "" {
		event.Props.SetText(config.PropDescription, entry.Note)
	}
	event.Props.SetText(config.PropCategories, fmt.Sprintf(config.FormatCategory, entry.Level))

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(day)
	event.Props.Set(dtStartProp)
	return event
}

// UID is the stable identifier of the event of key. It does not depend on the
// level so an edited day updates the existing event.
func UID(key calendar.DateKey) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf(config.FormatHashInput, key, config.UIDSalt)))
	return fmt.Sprintf(config.FormatUID, fmt.Sprintf("%x", hash[:config.UIDHashLength]), config.ICalDomain)
}

func (g *Generator) now() time.Time {
	if g.Clock == nil {
		return calendar.RealClock{}.Now()
	}
	return g.Clock.Now()
}
