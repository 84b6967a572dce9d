package plugins

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/eringen/blogwidgets/tagging"
)

// published keeps entries visible at now and orders them newest first.
// Sources promise this already; the plugins apply it again so a Source
// that returns drafts or unordered entries cannot leak them.
func published(entries []Entry, now time.Time) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsPublished(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// archiveDate reads the month and year query parameters. ok is false
// unless both are present.
func archiveDate(req Request) (month, year int, ok bool, err error) {
	if req.Query == nil || !req.Query.Has("month") || !req.Query.Has("year") {
		return 0, 0, false, nil
	}
	rawMonth := strings.TrimSpace(req.Query.Get("month"))
	rawYear := strings.TrimSpace(req.Query.Get("year"))
	month, err = strconv.Atoi(rawMonth)
	if err != nil {
		return 0, 0, false, errors.Wrapf(ErrInvalidArchiveDate, "month %q", rawMonth)
	}
	year, err = strconv.Atoi(rawYear)
	if err != nil {
		return 0, 0, false, errors.Wrapf(ErrInvalidArchiveDate, "year %q", rawYear)
	}
	return month, year, true, nil
}

func inMonth(entries []Entry, month, year int) []Entry {
	var out []Entry
	for _, e := range entries {
		d := e.PubDate.UTC()
		if int(d.Month()) == month && d.Year() == year {
			out = append(out, e)
		}
	}
	return out
}

func inLanguage(entries []Entry, lang string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.HasLanguage(lang) {
			out = append(out, e)
		}
	}
	return out
}

func taggedWithAll(entries []Entry, tags []string) []Entry {
	var out []Entry
	for _, e := range entries {
		if tagging.HasAll(e.Tags, tags) {
			out = append(out, e)
		}
	}
	return out
}

// resolveTags parses a tag input string and keeps the tags that exist.
func resolveTags(ctx context.Context, src Source, tagged string) ([]string, error) {
	names := tagging.ParseTagInput(tagged)
	if len(names) == 0 {
		return nil, nil
	}
	tags, err := src.ExistingTags(ctx, tagging.NormalizeAll(names))
	if err != nil {
		return nil, errors.Wrap(err, "resolve tags")
	}
	return tags, nil
}

func limit(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[:n]
}

func items(entries []Entry, req Request) []Item {
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, newItem(e, req.Language, req.DefaultLanguage))
	}
	return out
}

// MonthArchive is one year/month bucket of the side menu archive.
type MonthArchive struct {
	Year  int
	Month time.Month
	Count int
}

// Label renders the bucket as e.g. "March 2024".
func (m MonthArchive) Label() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Query is the query string that selects this month in a latest entries
// listing.
func (m MonthArchive) Query() string {
	return fmt.Sprintf("?month=%d&year=%d", int(m.Month), m.Year)
}

// Months groups entries by publication month, newest first.
func Months(entries []Entry) []MonthArchive {
	counts := make(map[[2]int]int)
	for _, e := range entries {
		d := e.PubDate.UTC()
		counts[[2]int{d.Year(), int(d.Month())}]++
	}
	out := make([]MonthArchive, 0, len(counts))
	for k, n := range counts {
		out = append(out, MonthArchive{Year: k[0], Month: time.Month(k[1]), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}
