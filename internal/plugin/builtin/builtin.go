// Package builtin registers every plugin shipped with docpipe.
package builtin

import (
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/plugin/emitters"
	"git.home.luguber.info/inful/docpipe/internal/plugin/filters"
	"git.home.luguber.info/inful/docpipe/internal/plugin/transformers"
)

// Deps are collaborators some built-ins need. Nil fields disable the
// feature that depends on them.
type Deps struct {
	Dates transformers.DateSource
}

// Catalog returns a catalog holding every built-in plugin.
func Catalog(deps Deps) *plugin.Catalog {
	c := plugin.NewCatalog()

	c.Add(plugin.KindTransformer, "frontmatter", transformers.NewFrontMatter)
	c.Add(plugin.KindTransformer, "lastmod", transformers.NewLastMod(deps.Dates))
	c.Add(plugin.KindTransformer, "markdown", transformers.NewMarkdown)
	c.Add(plugin.KindTransformer, "links", transformers.NewLinks)
	c.Add(plugin.KindTransformer, "description", transformers.NewDescription)
	c.Add(plugin.KindTransformer, "toc", transformers.NewTOC)
	c.Add(plugin.KindTransformer, "fingerprint", transformers.NewFingerprint)

	c.Add(plugin.KindFilter, "drafts", filters.NewDrafts)
	c.Add(plugin.KindFilter, "explicit-publish", filters.NewExplicitPublish)
	c.Add(plugin.KindFilter, "ignore-glob", filters.NewIgnoreGlob)

	c.Add(plugin.KindEmitter, "content-page", emitters.NewContentPage)
	c.Add(plugin.KindEmitter, "tag-page", emitters.NewTagPage)
	c.Add(plugin.KindEmitter, "folder-page", emitters.NewFolderPage)
	c.Add(plugin.KindEmitter, "content-index", emitters.NewContentIndex)
	c.Add(plugin.KindEmitter, "aliases", emitters.NewAliases)
	c.Add(plugin.KindEmitter, "assets", emitters.NewAssets)
	c.Add(plugin.KindEmitter, "not-found", emitters.NewNotFound)

	return c
}
