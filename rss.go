package blogwidgets

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/blogwidgets/markdown"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category,omitempty"`
}

// feedSize caps the number of items in the feed.
const feedSize = 20

func (a *App) renderRSS(c echo.Context, entries []Entry) error {
	base := a.Config.URL
	lang := a.Config.DefaultLanguage
	if len(entries) > feedSize {
		entries = entries[:feedSize]
	}
	items := make([]rssItem, 0, len(entries))
	for _, e := range entries {
		tr := e.TranslationFor(lang, lang)
		desc := tr.Excerpt
		if desc == "" {
			desc = markdown.Excerpt(tr.Content, 300)
		}
		entryURL := BuildURL(base, "blog", e.Slug)
		items = append(items, rssItem{
			Title:       tr.Title,
			Link:        entryURL,
			Description: desc,
			PubDate:     e.PubDate.UTC().Format(time.RFC1123Z),
			GUID:        entryURL,
			Categories:  e.Tags,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base),
			Description: a.Config.Description,
			Language:    lang,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
