package config

// DefaultPlugins returns the built-in plugin lists in execution order.
func DefaultPlugins() PluginsConfig {
	return PluginsConfig{
		Transformers: []PluginSpec{
			{Name: "frontmatter"},
			{Name: "lastmod", Options: map[string]any{"priority": []any{"frontmatter", "git", "filesystem"}}},
			{Name: "markdown", Options: map[string]any{"gfm": true, "heading_ids": true}},
			{Name: "links", Options: map[string]any{"mode": "shortest"}},
			{Name: "description", Options: map[string]any{"length": 150}},
			{Name: "toc", Options: map[string]any{"min_depth": 2, "max_depth": 3}},
		},
		Filters: []PluginSpec{
			{Name: "drafts"},
		},
		Emitters: []PluginSpec{
			{Name: "content-page"},
			{Name: "tag-page"},
			{Name: "folder-page"},
			{Name: "content-index"},
			{Name: "aliases"},
			{Name: "assets"},
			{Name: "not-found"},
		},
	}
}

// Names returns the plugin names of specs, preserving order.
func Names(specs []PluginSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
