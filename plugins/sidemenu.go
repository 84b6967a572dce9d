package plugins

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/eringen/blogwidgets/tagging"
)

// SideMenu lists the published entries filed under one tag, for use as a
// sidebar archive.
type SideMenu struct {
	src Source
}

// NewSideMenu returns the side menu archive plugin backed by src.
func NewSideMenu(src Source) *SideMenu {
	return &SideMenu{src: src}
}

func (p *SideMenu) Type() string { return SideMenuType }
func (p *SideMenu) Name() string { return "Side-menu archive plugin" }

// Render builds the archive for one instance. The archive holds entries
// tagged with the first known tag of the instance, or every published
// entry when the instance has none.
func (p *SideMenu) Render(ctx context.Context, req Request, inst Instance, placeholder string) (Result, error) {
	cfg, ok := inst.(*ArchiveConfig)
	if !ok {
		return Result{}, errors.Wrapf(ErrWrongInstance, "%s got %T", p.Type(), inst)
	}

	all, err := p.src.PublishedEntries(ctx, req.now())
	if err != nil {
		return Result{}, errors.Wrap(err, "load entries")
	}
	entries := published(all, req.now())

	tags, err := resolveTags(ctx, p.src, cfg.Tagged)
	if err != nil {
		return Result{}, err
	}

	var templates []string
	if t := CleanTemplateName(cfg.OptionalTemplate); t != "" {
		templates = append(templates, t)
	}
	if len(tags) > 0 {
		templates = append(templates, "cmsplugin_blog/side_menu_"+tagging.TemplateSuffix(tags[0])+".html")
		entries = taggedWithAll(entries, tags[:1])
	}
	templates = append(templates, SideMenuTemplate)

	archive := items(entries, req)
	return Result{
		Templates: templates,
		Context: Context{
			"instance":    cfg,
			"archive":     archive,
			"object_list": archive,
			"placeholder": placeholder,
			"language":    req.Language,
			"tags":        tags,
			"months":      Months(entries),
		},
	}, nil
}

// CleanTemplateName normalizes an author-supplied template name. Names
// that are absolute or escape the template root give "".
func CleanTemplateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned == "." {
		return ""
	}
	return cleaned
}
