// Package localization provides message lookup over the locale
// directories of a theme search path.
package localization

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// defaultLanguage is the language of last resort when no requested
// language has a translation.
var defaultLanguage = language.English

// I18n resolves message ids to localized text.
type I18n struct {
	log       *logrus.Entry
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
}

// New loads the message files of the given locale directories and
// returns a lookup preferring langs in order, then the default language.
//
// Directories are searched in priority order: a message defined in an
// earlier directory shadows the same id in a later one. Message files
// are JSON documents named after their language tag, e.g. en.json or
// zh-TW.json. Missing directories are skipped.
func New(dirs []string, langs ...string) (*I18n, error) {
	log := logrus.StandardLogger().WithField("type", "scrapbook/localization")

	bundle := i18n.NewBundle(defaultLanguage)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Loading a message id twice keeps the last definition, so walk the
	// directories from lowest to highest priority.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to read locale directory %q", dirs[i])
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}

			file := filepath.Join(dirs[i], entry.Name())
			if _, err := bundle.LoadMessageFile(file); err != nil {
				log.WithError(err).Warnf("Skipping unusable message file %s", file)
			}
		}
	}

	return &I18n{
		log:       log,
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, langs...),
	}, nil
}

// Get returns the localized message for id, substituting data into the
// message template. An id untranslated in every preferred language uses
// the default language; an id with no translation at all falls back to
// the id itself.
func (l *I18n) Get(id string, data map[string]interface{}) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if msg == "" {
		if err != nil {
			l.log.WithError(err).Debugf("No message for id %s", id)
		}
		return id
	}

	// Localize reports a default-language fallback as a non-nil error
	// alongside the rendered message. The message is still usable.
	return msg
}

// Languages returns the tags with at least one loaded message file.
func (l *I18n) Languages() []language.Tag {
	return l.bundle.LanguageTags()
}
