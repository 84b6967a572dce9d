package plugins

import (
	"net/url"
	"strconv"
	"strings"
)

// Paginator splits a list of items into pages of PerPage.
type Paginator struct {
	Count    int
	PerPage  int
	NumPages int
}

// Page is one page of a Paginator.
type Page struct {
	Number     int
	ObjectList []Item
	paginator  Paginator
	query      url.Values
}

// NewPaginator returns a paginator over count items. There is always at
// least one page, possibly empty.
func NewPaginator(count, perPage int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	pages := (count + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	return Paginator{Count: count, PerPage: perPage, NumPages: pages}
}

// PageRange returns the page numbers 1..NumPages.
func (p Paginator) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Number parses a raw page parameter. Non-integers and values below one
// give the first page, values past the end give the last page.
func (p Paginator) Number(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	if n > p.NumPages {
		return p.NumPages
	}
	return n
}

// Page slices items for the page selected by the page parameter of query.
// Page links keep the other parameters of query.
func (p Paginator) Page(all []Item, query url.Values) Page {
	n := p.Number(query.Get("page"))
	start := (n - 1) * p.PerPage
	end := start + p.PerPage
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return Page{Number: n, ObjectList: all[start:end], paginator: p, query: query}
}

func (pg Page) HasNext() bool     { return pg.Number < pg.paginator.NumPages }
func (pg Page) HasPrevious() bool { return pg.Number > 1 }
func (pg Page) HasOtherPages() bool {
	return pg.HasNext() || pg.HasPrevious()
}

func (pg Page) NextPageNumber() int {
	if !pg.HasNext() {
		return pg.Number
	}
	return pg.Number + 1
}

func (pg Page) PreviousPageNumber() int {
	if !pg.HasPrevious() {
		return pg.Number
	}
	return pg.Number - 1
}

// StartIndex is the 1-based index of the first item on the page, or 0 for
// an empty list.
func (pg Page) StartIndex() int {
	if pg.paginator.Count == 0 {
		return 0
	}
	return (pg.Number-1)*pg.paginator.PerPage + 1
}

// EndIndex is the 1-based index of the last item on the page.
func (pg Page) EndIndex() int {
	if pg.Number == pg.paginator.NumPages {
		return pg.paginator.Count
	}
	return pg.Number * pg.paginator.PerPage
}

// URL is the relative link to page n: the request query with only the
// page parameter replaced. The entry parameter is dropped since it
// selects detail mode.
func (pg Page) URL(n int) string {
	q := url.Values{}
	for k, v := range pg.query {
		if k == "page" || k == "entry" {
			continue
		}
		q[k] = v
	}
	q.Set("page", strconv.Itoa(n))
	return "?" + q.Encode()
}
