package plugins

import (
	"context"

	"github.com/pkg/errors"

	"github.com/eringen/blogwidgets/tagging"
)

// LatestEntries lists the newest published entries.
type LatestEntries struct {
	src Source
}

// NewLatestEntries returns the latest entries plugin backed by src.
func NewLatestEntries(src Source) *LatestEntries {
	return &LatestEntries{src: src}
}

func (p *LatestEntries) Type() string { return LatestEntriesType }
func (p *LatestEntries) Name() string { return "Latest entries" }

// Render builds the listing for one instance.
//
// The month and year query parameters narrow the listing to that archive
// month when both are present. A tagged instance keeps entries carrying
// every known tag of its tag string and prefers the template named after
// the first of them. An entry query parameter naming an entry of the
// listing switches to detail mode, and a page parameter selects the page
// when the instance paginates.
func (p *LatestEntries) Render(ctx context.Context, req Request, inst Instance, placeholder string) (Result, error) {
	cfg, ok := inst.(*LatestEntriesConfig)
	if !ok {
		return Result{}, errors.Wrapf(ErrWrongInstance, "%s got %T", p.Type(), inst)
	}

	all, err := p.src.PublishedEntries(ctx, req.now())
	if err != nil {
		return Result{}, errors.Wrap(err, "load entries")
	}
	entries := published(all, req.now())

	month, year, byMonth, err := archiveDate(req)
	if err != nil {
		return Result{}, err
	}
	if byMonth {
		entries = inMonth(entries, month, year)
	}

	if cfg.CurrentLanguageOnly {
		entries = inLanguage(entries, req.Language)
	}

	templates := []string{LatestEntriesTemplate}
	detailTemplates := []string{LatestEntriesDetailTemplate}
	var tags []string
	if cfg.Tagged != "" {
		tags, err = resolveTags(ctx, p.src, cfg.Tagged)
		if err != nil {
			return Result{}, err
		}
		entries = taggedWithAll(entries, tags)
		if len(tags) > 0 {
			suffix := tagging.TemplateSuffix(tags[0])
			templates = []string{"cmsplugin_blog/latest_entries_" + suffix + ".html", LatestEntriesTemplate}
			detailTemplates = []string{"cmsplugin_blog/latest_entries_" + suffix + "_detail.html", LatestEntriesDetailTemplate}
		}
	}

	c := Context{
		"instance":    cfg,
		"placeholder": placeholder,
		"language":    req.Language,
		"tags":        tags,
	}

	if slug := req.Query.Get("entry"); slug != "" {
		for _, e := range entries {
			if e.Slug == slug {
				item := newItem(e, req.Language, req.DefaultLanguage)
				c["entry"] = item
				c["object"] = item
				return Result{Templates: detailTemplates, Context: c}, nil
			}
		}
	}

	latest := items(limit(entries, cfg.Limit), req)
	if cfg.PaginateBy > 0 {
		pg := NewPaginator(len(latest), cfg.PaginateBy)
		page := pg.Page(latest, req.Query)
		latest = page.ObjectList
		c["paginator"] = pg
		c["page_obj"] = page
		c["is_paginated"] = pg.NumPages > 1
	}
	c["latest"] = latest
	c["object_list"] = latest

	return Result{Templates: templates, Context: c}, nil
}
