// Package i18n turns error kinds and calendar events into localized text.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/config"
	"github.com/tartampluch/go-vcf/internal/engine"
)

//go:embed locales/*.json
var localeFS embed.FS

var kindKeys = map[card.Kind]string{
	card.Other:           config.TKeyErrOther,
	card.InvalidFile:     config.TKeyErrInvFile,
	card.InvalidRecord:   config.TKeyErrInvCard,
	card.InvalidProperty: config.TKeyErrInvProp,
	card.InvalidDateTime: config.TKeyErrInvDT,
	card.WriteFailure:    config.TKeyErrWrite,
}

// Catalog localizes messages for one language.
type Catalog struct {
	localizer *goi18n.Localizer
	languages []string
	lang      string
}

// New loads the embedded locales and selects lang, falling back to English.
func New(lang string) *Catalog {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	c := &Catalog{lang: lang}
	if c.lang == "" {
		c.lang = config.DefaultLanguage
	}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return c
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
		if langCode == "" {
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
		c.languages = append(c.languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}

	c.localizer = goi18n.NewLocalizer(bundle, c.lang)
	return c
}

// Languages lists the locales that loaded successfully.
func (c *Catalog) Languages() []string {
	return c.languages
}

// Lang is the requested language.
func (c *Catalog) Lang() string {
	return c.lang
}

// Msg translates key. The key itself is returned when no translation exists.
func (c *Catalog) Msg(key string) string {
	return c.localize(&goi18n.LocalizeConfig{MessageID: key})
}

// Plural translates a count-dependent message.
func (c *Catalog) Plural(key string, count int) string {
	return c.localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: map[string]any{"Count": count},
		PluralCount:  count,
	})
}

// Template translates key with data.
func (c *Catalog) Template(key string, data map[string]any) string {
	return c.localize(&goi18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

// Kind returns the localized name of an error kind.
func (c *Catalog) Kind(k card.Kind) string {
	key, ok := kindKeys[k]
	if !ok {
		key = config.TKeyErrOther
	}
	return c.Msg(key)
}

// Error renders err for a user: the localized kind, plus the line when known.
func (c *Catalog) Error(err error) string {
	if err == nil {
		return c.Msg(config.TKeyStatusValid)
	}
	msg := c.Kind(card.KindOf(err))

	var cErr *card.Error
	if errors.As(err, &cErr) && cErr.Line > 0 {
		msg = c.Template(config.TKeyErrAtLine, map[string]any{"Message": msg, "Line": cErr.Line})
	}
	return msg
}

// Summary localizes a calendar event title. It satisfies engine.SummaryFormatter.
func (c *Catalog) Summary(occasion, name string, age int, yearKnown bool) string {
	data := map[string]any{"Name": name, "Age": age}

	key := config.TKeyEvtBirthday
	switch {
	case occasion == config.OccasionAnniversary && yearKnown && age > 0:
		key = config.TKeyEvtAnniversaryAge
	case occasion == config.OccasionAnniversary:
		key = config.TKeyEvtAnniversary
	case yearKnown && age == 0:
		key = config.TKeyEvtBirth
	case yearKnown:
		key = config.TKeyEvtBirthdayAge
	}

	msg := c.Template(key, data)
	if msg == key {
		return engine.DefaultSummary(occasion, name, age, yearKnown)
	}
	return msg
}

func (c *Catalog) localize(lc *goi18n.LocalizeConfig) string {
	if c.localizer == nil {
		return lc.MessageID
	}
	msg, err := c.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, fmt.Errorf("%s: %w", c.lang, err),
		)
		return lc.MessageID
	}
	return msg
}
