// Package transformers implements the built-in transformer plugins. Each
// transformer enriches plugin.Content in place and runs in the order the
// configuration lists them; the default order is frontmatter, lastmod,
// markdown, links, description, toc.
package transformers
