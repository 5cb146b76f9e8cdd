package emitters

import (
	"context"
	"fmt"
	"html"
	"sort"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

const redirectPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%[1]s</title>
<link rel="canonical" href="%[2]s">
<meta http-equiv="refresh" content="0; url=%[2]s">
</head>
<body><a href="%[2]s">%[1]s</a></body>
</html>
`

// Aliases writes a redirect page for every frontmatter alias. An alias that
// collides with a real document is skipped.
type Aliases struct {
	plugin.Base
}

// NewAliases is the catalog constructor.
func NewAliases(opts plugin.Options) (plugin.Plugin, error) {
	return &Aliases{Base: plugin.NewBase("aliases", "1", plugin.KindEmitter, opts)}, nil
}

func (e *Aliases) Resources() []plugin.ResourceRequest { return nil }

func (e *Aliases) Emit(ctx context.Context, pctx *plugin.Context, contents []*plugin.Content, _ plugin.Resources) ([]pathid.FullPath, error) {
	targets := map[pathid.Slug]*plugin.Content{}
	for _, c := range contents {
		for _, raw := range c.Aliases {
			a := pathid.NewSlug(raw)
			if a == c.Slug || (pctx.Graph != nil && pctx.Graph.Has(a)) {
				continue
			}
			if prev, ok := targets[a]; ok && prev.Slug != c.Slug {
				pctx.Log().Warn("Alias claimed twice; keeping first",
					"alias", string(a), "kept", string(prev.Slug), "dropped", string(c.Slug))
				continue
			}
			targets[a] = c
		}
	}
	aliases := make([]pathid.Slug, 0, len(targets))
	for a := range targets {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i] < aliases[j] })

	out := make([]pathid.FullPath, 0, len(aliases))
	for _, a := range aliases {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		c := targets[a]
		link := html.EscapeString(href(a, c.Slug))
		page := fmt.Sprintf(redirectPage, html.EscapeString(c.Title), link)
		full, err := writeArtifact(pctx, pageFile(a), []byte(page))
		if err != nil {
			return out, err
		}
		out = append(out, full)
	}
	return out, nil
}
