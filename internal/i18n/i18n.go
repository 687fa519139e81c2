// Package i18n holds the console's message catalog and locale negotiation.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"catalog-admin-console/internal/ui"
)

// DefaultLocale is used when nothing better can be negotiated.
const DefaultLocale = "ru"

//go:embed messages.yaml
var embeddedMessages []byte

var supported = []language.Tag{language.Russian, language.Uzbek, language.English}

var matcher = language.NewMatcher(supported)

// Catalog maps a message key to its text per locale.
type Catalog struct {
	messages map[string]map[string]string
}

// Parse decodes a YAML catalog of the form `key: {en: ..., ru: ..., uz: ...}`.
func Parse(data []byte) (*Catalog, error) {
	messages := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("i18n: parse catalog: %w", err)
	}
	return &Catalog{messages: messages}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedMessages)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup returns the message for key in locale, falling back to the default
// locale and then to the key itself.
func (c *Catalog) Lookup(locale, key string) string {
	byLocale, ok := c.messages[key]
	if !ok {
		return key
	}
	if msg := byLocale[locale]; msg != "" {
		return msg
	}
	if msg := byLocale[DefaultLocale]; msg != "" {
		return msg
	}
	return key
}

// Translator binds the catalog to one locale.
func (c *Catalog) Translator(locale string) ui.Translator {
	return translator{catalog: c, locale: Negotiate(locale)}
}

type translator struct {
	catalog *Catalog
	locale  string
}

func (t translator) T(key string) string {
	return t.catalog.Lookup(t.locale, key)
}

// Negotiate reduces an Accept-Language value or bare tag ("en-US", "uz;q=0.8,ru")
// to one of the supported base languages.
func Negotiate(accept string) string {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return DefaultLocale
	}
	tag, _ := language.MatchStrings(matcher, accept)
	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLocale
	}
	return base.String()
}

// Supported reports whether locale is one of the catalog languages.
func Supported(locale string) bool {
	for _, t := range supported {
		b, _ := t.Base()
		if b.String() == locale {
			return true
		}
	}
	return false
}
