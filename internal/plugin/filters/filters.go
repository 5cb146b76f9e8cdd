// Package filters implements the built-in publish filters.
package filters

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar"

	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// Drafts drops documents whose draft field is true.
type Drafts struct {
	plugin.Base
	key string
}

// NewDrafts is the catalog constructor. Options: key (default "draft").
func NewDrafts(opts plugin.Options) (plugin.Plugin, error) {
	return &Drafts{Base: plugin.NewBase("drafts", "1", plugin.KindFilter, opts), key: opts.String("key", "draft")}, nil
}

func (f *Drafts) ShouldPublish(_ context.Context, _ *plugin.Context, c *plugin.Content) (bool, error) {
	return !c.Bool(f.key), nil
}

// ExplicitPublish keeps only documents that opt in with publish: true.
type ExplicitPublish struct {
	plugin.Base
	key string
}

// NewExplicitPublish is the catalog constructor. Options: key (default "publish").
func NewExplicitPublish(opts plugin.Options) (plugin.Plugin, error) {
	return &ExplicitPublish{Base: plugin.NewBase("explicit-publish", "1", plugin.KindFilter, opts), key: opts.String("key", "publish")}, nil
}

func (f *ExplicitPublish) ShouldPublish(_ context.Context, _ *plugin.Context, c *plugin.Content) (bool, error) {
	return c.Bool(f.key), nil
}

// IgnoreGlob drops documents whose source path matches any pattern.
type IgnoreGlob struct {
	plugin.Base
	patterns []string
}

// NewIgnoreGlob is the catalog constructor. Options: patterns.
func NewIgnoreGlob(opts plugin.Options) (plugin.Plugin, error) {
	patterns := opts.Strings("patterns", nil)
	if len(patterns) == 0 {
		return nil, fmt.Errorf("option patterns: at least one pattern is required")
	}
	return &IgnoreGlob{Base: plugin.NewBase("ignore-glob", "1", plugin.KindFilter, opts), patterns: patterns}, nil
}

func (f *IgnoreGlob) ShouldPublish(_ context.Context, _ *plugin.Context, c *plugin.Content) (bool, error) {
	for _, p := range f.patterns {
		ok, err := doublestar.PathMatch(p, string(c.Path))
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", p, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}
