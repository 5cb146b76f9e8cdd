package emitters

import (
	"context"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// FolderPage writes an index page for every folder that has no index
// document of its own, listing its documents and subfolders.
type FolderPage struct {
	plugin.Base
}

// NewFolderPage is the catalog constructor. Options: layout.
func NewFolderPage(opts plugin.Options) (plugin.Plugin, error) {
	return &FolderPage{Base: plugin.NewBase("folder-page", "1", plugin.KindEmitter, opts)}, nil
}

func (e *FolderPage) Resources() []plugin.ResourceRequest { return layoutRequest(e.Options()) }

type folder struct {
	docs []*plugin.Content
	subs map[string]struct{}
}

func (e *FolderPage) Emit(ctx context.Context, pctx *plugin.Context, contents []*plugin.Content, res plugin.Resources) ([]pathid.FullPath, error) {
	folders := map[string]*folder{"": {subs: map[string]struct{}{}}}
	get := func(dir string) *folder {
		f, ok := folders[dir]
		if !ok {
			f = &folder{subs: map[string]struct{}{}}
			folders[dir] = f
		}
		return f
	}
	indexed := map[string]bool{}
	for _, c := range contents {
		dir := c.Slug.Folder()
		if path.Base(string(c.Slug)) == "index" {
			indexed[dir] = true
		} else {
			get(dir).docs = append(get(dir).docs, c)
		}
		// Register every ancestor so intermediate folders get pages too.
		for d := dir; d != ""; d = pathid.Slug(d).Folder() {
			get(pathid.Slug(d).Folder()).subs[d] = struct{}{}
		}
	}

	dirs := make([]string, 0, len(folders))
	for d := range folders {
		if !indexed[d] {
			dirs = append(dirs, d)
		}
	}
	if len(dirs) == 0 {
		return nil, nil
	}
	sort.Strings(dirs)

	tmpl, err := parseLayout(res)
	if err != nil {
		return nil, err
	}
	out := make([]pathid.FullPath, 0, len(dirs))
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		f := folders[d]
		slug := pathid.Slug(strings.TrimPrefix(d+"/index", "/"))
		title := pctx.Site.Title
		if d != "" {
			title = humanize(path.Base(d))
		}
		view := PageView{Site: pctx.Site, Kind: KindFolder, Slug: slug, Title: title, Root: rootOf(slug), Breadcrumbs: breadcrumbs(slug)}

		subs := make([]string, 0, len(f.subs))
		for s := range f.subs {
			subs = append(subs, s)
		}
		sort.Strings(subs)
		for _, s := range subs {
			view.Listing = append(view.Listing, LinkView{Title: humanize(path.Base(s)) + "/", Href: href(slug, pathid.Slug(s+"/index"))})
		}
		sort.Slice(f.docs, func(i, j int) bool { return f.docs[i].Slug < f.docs[j].Slug })
		for _, c := range f.docs {
			view.Listing = append(view.Listing, LinkView{Title: c.Title, Href: href(slug, c.Slug), Description: c.Description})
		}

		page, err := render(tmpl, view)
		if err != nil {
			return out, err
		}
		full, err := writeArtifact(pctx, pageFile(slug), page)
		if err != nil {
			return out, err
		}
		out = append(out, full)
	}
	return out, nil
}
