// Package i18n picks the language of a request and translates the few
// user-facing strings the plugins own.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CookieName is the cookie that remembers a visitor's language choice.
const CookieName = "django_language"

// Negotiator resolves request languages against a fixed list.
type Negotiator struct {
	supported []string
	fallback  string
	matcher   language.Matcher
}

// NewNegotiator returns a Negotiator for the supported language codes.
// fallback is used when nothing matches and is added to the list if
// missing.
func NewNegotiator(supported []string, fallback string) *Negotiator {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = "en"
	}
	codes := []string{fallback}
	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && s != fallback {
			codes = append(codes, s)
		}
	}
	tags := make([]language.Tag, 0, len(codes))
	for _, c := range codes {
		tags = append(tags, language.Make(c))
	}
	return &Negotiator{
		supported: codes,
		fallback:  fallback,
		matcher:   language.NewMatcher(tags),
	}
}

// Supported returns the language codes, fallback first.
func (n *Negotiator) Supported() []string {
	return append([]string(nil), n.supported...)
}

// Fallback returns the default language code.
func (n *Negotiator) Fallback() string {
	return n.fallback
}

// FromRequest returns the language for r: an explicit language query
// parameter, then the language cookie, then Accept-Language, then the
// fallback.
func (n *Negotiator) FromRequest(r *http.Request) string {
	if code, ok := n.lookup(r.URL.Query().Get("language")); ok {
		return code
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if code, ok := n.lookup(c.Value); ok {
			return code
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return n.Match(accept)
	}
	return n.fallback
}

// Match resolves an Accept-Language header value.
func (n *Negotiator) Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return n.fallback
	}
	_, idx, conf := n.matcher.Match(tags...)
	if conf == language.No {
		return n.fallback
	}
	return n.supported[idx]
}

func (n *Negotiator) lookup(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	for _, s := range n.supported {
		if s == code {
			return s, true
		}
	}
	return "", false
}

func init() {
	set := func(lang language.Tag, key, msg string) {
		_ = message.SetString(lang, key, msg)
	}
	set(language.German, "Latest entries", "Neueste Einträge")
	set(language.German, "Side-menu archive plugin", "Seitenmenü-Archiv")
	set(language.French, "Latest entries", "Derniers articles")
	set(language.French, "Side-menu archive plugin", "Archive du menu latéral")
	set(language.Spanish, "Latest entries", "Últimas entradas")
	set(language.Spanish, "Side-menu archive plugin", "Archivo del menú lateral")
}

// Translate returns msg in the language code, or msg itself when no
// translation is known.
func Translate(code, msg string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return msg
	}
	return message.NewPrinter(tag).Sprintf(msg)
}
