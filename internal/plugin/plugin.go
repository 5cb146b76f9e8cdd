// Package plugin defines the transformer, filter and emitter protocol of the
// build pipeline and the manager that executes plugins in order.
package plugin

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Kind identifies the capability a plugin implements.
type Kind string

const (
	// KindTransformer converts raw document content into enriched content.
	KindTransformer Kind = "transformer"
	// KindFilter decides whether processed content is published.
	KindFilter Kind = "filter"
	// KindEmitter produces output artifacts from published content.
	KindEmitter Kind = "emitter"
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindTransformer, KindFilter, KindEmitter:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// Descriptor identifies a configured plugin instance.
type Descriptor struct {
	// Name is unique within its kind (e.g. "markdown", "drafts").
	Name string
	// Version participates in the transformer fingerprint; bump it when
	// output for the same input and options changes.
	Version string
	Kind    Kind
	Options Options
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s@%s", d.Kind, d.Name, d.Version)
}

// Validate checks that the descriptor can be registered.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if d.Version == "" {
		return fmt.Errorf("plugin %s: version is required", d.Name)
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("plugin %s: invalid kind %q", d.Name, d.Kind)
	}
	return nil
}

// Plugin is implemented by every plugin instance.
type Plugin interface {
	Descriptor() Descriptor
}

// Transformer mutates content in place. Transformers run in registration
// order, each seeing the previous one's output.
type Transformer interface {
	Plugin
	Transform(ctx context.Context, pctx *Context, c *Content) error
}

// Filter is a side-effect free publish predicate.
type Filter interface {
	Plugin
	ShouldPublish(ctx context.Context, pctx *Context, c *Content) (bool, error)
}

// Emitter writes artifacts for the published content set. Content passed to
// Emit is shared between emitters and must not be modified.
type Emitter interface {
	Plugin
	Emit(ctx context.Context, pctx *Context, contents []*Content, res Resources) ([]pathid.FullPath, error)
	// Resources declares what must be loaded before Emit runs.
	Resources() []ResourceRequest
}

// ResourceRequest names a resource an emitter needs. An empty Path selects
// the built-in resource registered under Name.
type ResourceRequest struct {
	Name     string
	Path     string
	Optional bool
}

// Resources holds loaded resources keyed by request name.
type Resources map[string][]byte

// Get returns the resource loaded for name.
func (r Resources) Get(name string) ([]byte, bool) {
	b, ok := r[name]
	return b, ok
}

// Base carries a descriptor for embedding in plugin implementations.
type Base struct {
	desc Descriptor
}

// NewBase returns a Base for the given identity.
func NewBase(name, version string, kind Kind, opts Options) Base {
	return Base{desc: Descriptor{Name: name, Version: version, Kind: kind, Options: opts}}
}

// Descriptor implements Plugin.
func (b Base) Descriptor() Descriptor { return b.desc }

// Options returns the configured options.
func (b Base) Options() Options { return b.desc.Options }
