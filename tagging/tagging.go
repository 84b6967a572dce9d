// Package tagging parses author-entered tag strings and matches entries
// against tag sets.
package tagging

import (
	"sort"
	"strings"
)

// ParseTagInput splits a tag input string into a sorted, deduplicated list
// of tag names.
//
// Input without commas or double quotes is split on spaces. Otherwise a
// double-quoted group is always a single tag, and the loose text around it
// is split on commas when a loose comma was seen, on spaces when not.
// An unterminated quote is treated as loose text.
func ParseTagInput(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if !strings.ContainsAny(input, `,"`) {
		return sortUnique(splitStrip(input, " "))
	}

	var (
		words          []string
		toBeSplit      []string
		buf            strings.Builder
		sawLooseComma  bool
		openQuote      bool
		quoteWithComma bool
	)
	for _, r := range input {
		switch {
		case openQuote && r == '"':
			if w := strings.TrimSpace(buf.String()); w != "" {
				words = append(words, w)
			}
			buf.Reset()
			openQuote = false
			quoteWithComma = false
		case openQuote:
			if r == ',' {
				quoteWithComma = true
			}
			buf.WriteRune(r)
		case r == '"':
			if buf.Len() > 0 {
				toBeSplit = append(toBeSplit, buf.String())
				buf.Reset()
			}
			openQuote = true
		default:
			if r == ',' {
				sawLooseComma = true
			}
			buf.WriteRune(r)
		}
	}
	if buf.Len() > 0 {
		if openQuote && quoteWithComma {
			sawLooseComma = true
		}
		toBeSplit = append(toBeSplit, buf.String())
	}

	delim := " "
	if sawLooseComma {
		delim = ","
	}
	for _, chunk := range toBeSplit {
		words = append(words, splitStrip(chunk, delim)...)
	}
	return sortUnique(words)
}

// Normalize lowercases and trims a tag name for storage and comparison.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeAll normalizes every tag and drops empties and duplicates,
// keeping first-seen order.
func NormalizeAll(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Has reports whether tags contains want, ignoring case.
func Has(tags []string, want string) bool {
	want = Normalize(want)
	for _, t := range tags {
		if Normalize(t) == want {
			return true
		}
	}
	return false
}

// HasAll reports whether tags contains every tag in wanted. An empty
// wanted list never matches.
func HasAll(tags []string, wanted []string) bool {
	if len(wanted) == 0 {
		return false
	}
	for _, w := range wanted {
		if !Has(tags, w) {
			return false
		}
	}
	return true
}

// EditString formats tag names so that ParseTagInput reads them back.
// Names containing a comma are quoted; names are joined with ", " when any
// contains a space and with " " otherwise.
func EditString(tags []string) string {
	names := make([]string, 0, len(tags))
	commas := false
	for _, t := range tags {
		if strings.Contains(t, ",") {
			t = `"` + t + `"`
		}
		if strings.Contains(t, " ") {
			commas = true
		}
		names = append(names, t)
	}
	sort.Strings(names)
	if commas {
		return strings.Join(names, ", ")
	}
	return strings.Join(names, " ")
}

// TemplateSuffix turns a tag name into a fragment that is safe to embed in
// a template file name.
func TemplateSuffix(tag string) string {
	tag = Normalize(tag)
	var b strings.Builder
	dash := false
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func splitStrip(s, delim string) []string {
	var out []string
	for _, part := range strings.Split(s, delim) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortUnique(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := set[w]; ok {
			continue
		}
		set[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
