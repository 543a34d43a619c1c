package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/cardfile"
	"github.com/tartampluch/go-vcf/internal/config"
)

// SyncConfig contains all parameters required to perform a synchronization.
type SyncConfig struct {
	Mode            string // config.SourceModeLocal, SourceModeDir or SourceModeWeb
	LocalPath       string // Card file (local mode) or directory of card files (dir mode)
	WebURL          string // CardDAV or WebDAV URL
	WebUser         string // HTTP Basic Auth Username
	WebPass         string // HTTP Basic Auth Password
	ReminderTrigger string // ISO8601 duration string (e.g., "-P1D")
}

// SummaryFormatter renders the SUMMARY of one event. age is the number of
// years at the event date and is only meaningful when yearKnown is set.
type SummaryFormatter func(occasion, name string, age int, yearKnown bool) string

// Generator turns contact records into an iCalendar feed of their
// birthdays and anniversaries.
type Generator struct {
	Clock   Clock
	Fetcher CardFetcher

	// Parser carries the decoding options applied to every source.
	Parser card.Parser

	// FormatSummary lets the caller inject localized event titles.
	// DefaultSummary is used when nil.
	FormatSummary SummaryFormatter
}

// RunSync reads the configured source and generates the calendar.
// It returns the ICS data, one Entry per occasion, the number of occasions
// falling today, and any error.
func (g *Generator) RunSync(ctx context.Context, cfg SyncConfig) ([]byte, []Entry, int, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyMode, cfg.Mode,
	)
	log.InfoContext(ctx, config.MsgSyncStarted)

	records, err := g.acquireRecords(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, 0, ctx.Err()
		}
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}

	ics, entries, count, err := g.Generate(ctx, records, cfg.ReminderTrigger)
	if err == nil {
		log.Debug("Sync finished", config.LogKeyDuration, time.Since(start).Milliseconds())
	}
	return ics, entries, count, err
}

// acquireRecords decodes every record of the configured source.
// Malformed records are skipped by cardfile.DecodeAll.
func (g *Generator) acquireRecords(ctx context.Context, cfg SyncConfig) ([]*card.Record, error) {
	switch cfg.Mode {
	case config.SourceModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return cardfile.ReadAll(cfg.LocalPath, &g.Parser)

	case config.SourceModeDir:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		files, err := cardfile.List(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		var records []*card.Record
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			recs, err := cardfile.ReadAll(f, &g.Parser)
			if err != nil {
				slog.Warn(config.MsgSkippedCard,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyFile, f,
					config.LogKeyError, err)
			}
			records = append(records, recs...)
		}
		return records, nil

	case config.SourceModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if g.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		rc, err := g.Fetcher.Fetch(ctx, cfg.WebURL, cfg.WebUser, cfg.WebPass)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()

		source := cfg.WebURL
		if u, err := url.Parse(cfg.WebURL); err == nil {
			source = SafeURL(u)
		}
		return cardfile.DecodeAll(rc, source, &g.Parser)

	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, cfg.Mode)
	}
}

type syncStats struct {
	processed, found, today int
}

// Generate builds the iCalendar object for records.
func (g *Generator) Generate(ctx context.Context, records []*card.Record, reminderTrigger string) ([]byte, []Entry, int, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Occasions follow the local calendar date; only DTSTAMP is UTC.
	now := g.clock().Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	var stats syncStats
	var entries []Entry

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		stats.processed++

		name := displayName(rec)
		text := card.Format(rec)
		cardUID := hashUID(name, config.KeywordVCard, text)

		occasions := []struct {
			kind string
			dt   *card.DateTime
		}{
			{config.OccasionBirthday, rec.Birthday},
			{config.OccasionAnniversary, rec.Anniversary},
		}

		for _, occ := range occasions {
			if occ.dt == nil {
				continue
			}
			date, yearKnown, err := ParseDate(occ.dt)
			if err != nil {
				slog.Debug(config.MsgSkippedDate,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyOccasion, occ.kind,
					config.LogKeyValue, occ.dt.String())
				continue
			}
			stats.found++

			uid := hashUID(name, occ.kind, date.Format(time.RFC3339))
			next, years := calculateNextOccurrence(now, date, yearKnown)
			entries = append(entries, Entry{
				UID:            uid,
				CardUID:        cardUID,
				Name:           name,
				Occasion:       occ.kind,
				Date:           date,
				YearKnown:      yearKnown,
				NextOccurrence: next,
				YearsNext:      years,
				Card:           []byte(text),
			})

			events, isToday := g.createEvents(occ.kind, name, date, yearKnown, reminderTrigger, now, uid)
			if isToday {
				stats.today++
				slog.Info(config.MsgDateToday,
					config.LogKeyComponent, config.CompEngine,
					config.LogKeyName, name,
					config.LogKeyOccasion, occ.kind,
					config.LogKeyDate, date.Format(config.DateFormatFullDash))
			}

			for _, e := range events {
				e.Props.Set(dtStampProp)
				cal.Children = append(cal.Children, e.Component)
			}
		}
	}

	// Clients flag an empty VCALENDAR produced by the encoder as invalid.
	if len(cal.Children) == 0 {
		g.logSuccess(stats)
		return []byte(config.StubVCalendar), entries, 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	g.logSuccess(stats)
	return buf.Bytes(), entries, stats.today, nil
}

func (g *Generator) clock() Clock {
	if g.Clock == nil {
		return RealClock{}
	}
	return g.Clock
}

func (g *Generator) logSuccess(stats syncStats) {
	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.found),
			slog.Int(config.LogKeyToday, stats.today),
		),
	)
}

// displayName prefers FN, then the given and family parts of N.
func displayName(rec *card.Record) string {
	if name := rec.Name(); name != "" {
		return name
	}
	if n := rec.Get(config.VCardN); n != nil && len(n.Values) >= 2 {
		if name := strings.TrimSpace(n.Values[1] + " " + n.Values[0]); name != "" {
			return name
		}
	}
	return config.FallbackName
}

// hashUID derives a deterministic identifier, stable across refreshes.
func hashUID(name, kind, detail string) string {
	input := fmt.Sprintf(config.FormatHashInput, name, kind, detail, config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:config.UIDHashLength])
}

// DefaultSummary is the untranslated event title.
func DefaultSummary(occasion, name string, age int, yearKnown bool) string {
	format := config.FallbackSummaryBirthday
	if occasion == config.OccasionAnniversary {
		format = config.FallbackSummaryAnniversary
	}
	summary := fmt.Sprintf(format, name)
	if yearKnown && age > 0 {
		summary = fmt.Sprintf(config.FallbackSummaryAge, summary, age)
	}
	return summary
}

// calculateNextOccurrence returns today or the next future anniversary of
// date, and the number of years reached on that day.
func calculateNextOccurrence(now time.Time, date time.Time, yearKnown bool) (time.Time, int) {
	currentYear := now.Year()
	loc := now.Location()

	// time.Date normalizes Feb 29 to March 1st outside leap years.
	candidate := time.Date(currentYear, date.Month(), date.Day(), 0, 0, 0, 0, loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if candidate.Before(todayStart) {
		candidate = time.Date(currentYear+1, date.Month(), date.Day(), 0, 0, 0, 0, loc)
	}

	years := 0
	if yearKnown {
		years = candidate.Year() - date.Year()
	}
	return candidate, years
}

// createEvents generates all-day events for the previous, current and next
// year. No event is created before the original date.
func (g *Generator) createEvents(occasion, name string, date time.Time, yearKnown bool, reminderTrigger string, now time.Time, uidBase string) ([]*ical.Event, bool) {
	currentYear := now.Year()
	targetYears := []int{currentYear - 1, currentYear, currentYear + 1}
	loc := now.Location()

	format := g.FormatSummary
	if format == nil {
		format = DefaultSummary
	}

	var events []*ical.Event
	isToday := false
	todayYear, todayMonth, todayDay := now.Date()

	for _, y := range targetYears {
		if yearKnown && y < date.Year() {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, y, config.ICalDomain))

		age := 0
		if yearKnown {
			age = y - date.Year()
		}

		summary := format(occasion, name, age, yearKnown)
		event.Props.SetText(config.PropSummary, summary)
		event.Props.SetText(config.PropCategories, strings.ToUpper(occasion))

		eventDate := time.Date(y, date.Month(), date.Day(), 0, 0, 0, 0, loc)
		if y == todayYear && eventDate.Month() == todayMonth && eventDate.Day() == todayDay {
			isToday = true
		}

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(eventDate)
		event.Props.Set(dtStartProp)

		if reminderTrigger != "" {
			addAlarm(event, reminderTrigger, summary)
		}

		events = append(events, event)
	}
	return events, isToday
}

// addAlarm appends a DISPLAY alarm to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set the raw value; SetText would add VALUE=TEXT.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// ParseDate converts a BDAY/ANNIVERSARY value into a calendar date.
// Any time part is ignored. Truncated dates are anchored on a leap year so
// that --0229 survives.
func ParseDate(dt *card.DateTime) (time.Time, bool, error) {
	if dt == nil || dt.IsText || dt.Date == "" {
		return time.Time{}, false, errors.New(config.ErrDateParse)
	}

	for _, f := range []string{config.DateFormatFullBasic, config.DateFormatFullDash} {
		if t, err := time.Parse(f, dt.Date); err == nil {
			return t, true, nil
		}
	}

	for _, f := range []string{config.DateFormatNoYearB, config.DateFormatNoYearD} {
		if t, err := time.Parse(f, dt.Date); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%s: %q", config.ErrDateParse, dt.Date)
}
