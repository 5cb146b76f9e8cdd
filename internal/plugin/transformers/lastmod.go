package transformers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/docpipe/internal/git"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Date sources accepted by the lastmod priority option.
const (
	SourceFrontMatter = "frontmatter"
	SourceGit         = "git"
	SourceFilesystem  = "filesystem"
)

// DateSource supplies commit dates. *git.DateResolver implements it.
type DateSource interface {
	Dates(ctx context.Context, file pathid.FilePath) (git.Dates, bool, error)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LastMod fills Content.Dates from the first source in priority order that
// knows them.
type LastMod struct {
	plugin.Base
	priority []string
	git      DateSource
}

// NewLastMod returns a constructor bound to a git date source, which may be
// nil when the content is not in a repository.
func NewLastMod(src DateSource) plugin.Constructor {
	return func(opts plugin.Options) (plugin.Plugin, error) {
		prio := opts.Strings("priority", []string{SourceFrontMatter, SourceGit, SourceFilesystem})
		for _, p := range prio {
			switch p {
			case SourceFrontMatter, SourceGit, SourceFilesystem:
			default:
				return nil, fmt.Errorf("unknown date source %q", p)
			}
		}
		return &LastMod{
			Base:     plugin.NewBase("lastmod", "1", plugin.KindTransformer, opts),
			priority: prio,
			git:      src,
		}, nil
	}
}

func (t *LastMod) Transform(ctx context.Context, pctx *plugin.Context, c *plugin.Content) error {
	var d plugin.Dates
	for _, src := range t.priority {
		switch src {
		case SourceFrontMatter:
			fill(&d, plugin.Dates{
				Created:   fieldDate(c.FrontMatter, "created", "date"),
				Modified:  fieldDate(c.FrontMatter, "lastmod", "modified", "updated", "last-modified"),
				Published: fieldDate(c.FrontMatter, "published", "publishdate", "publishDate", "date"),
			})
		case SourceGit:
			if t.git == nil {
				continue
			}
			gd, ok, err := t.git.Dates(ctx, c.Path)
			if err != nil {
				pctx.Log().Debug("Git dates unavailable", logfields.File(string(c.Path)), logfields.Error(err))
				continue
			}
			if ok {
				fill(&d, plugin.Dates{Created: gd.Created, Modified: gd.Modified})
			}
		case SourceFilesystem:
			if pctx == nil || pctx.ContentDir == "" {
				continue
			}
			info, err := os.Stat(string(c.Path.Join(pctx.ContentDir)))
			if err != nil {
				continue
			}
			mod := info.ModTime().UTC().Truncate(time.Second)
			fill(&d, plugin.Dates{Created: mod, Modified: mod})
		}
	}
	if d.Published.IsZero() {
		d.Published = d.Created
	}
	c.Dates = d
	return nil
}

func fill(dst *plugin.Dates, src plugin.Dates) {
	if dst.Created.IsZero() {
		dst.Created = src.Created
	}
	if dst.Modified.IsZero() {
		dst.Modified = src.Modified
	}
	if dst.Published.IsZero() {
		dst.Published = src.Published
	}
}

func fieldDate(fields map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case time.Time:
			return v.UTC()
		case string:
			s := strings.TrimSpace(v)
			for _, layout := range dateLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts.UTC()
				}
			}
		}
	}
	return time.Time{}
}
