package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// Failure attributes an error to a plugin, phase and (when known) a file.
type Failure struct {
	Plugin string
	Phase  derrors.Phase
	File   pathid.FilePath
	Err    error
}

// Stats counts successful and failed invocations of one plugin.
type Stats struct {
	Name      string
	Kind      Kind
	Succeeded int64
	Failed    int64
}

type counter struct {
	ok   atomic.Int64
	fail atomic.Int64
}

type entry[T Plugin] struct {
	plugin T
	stats  *counter
}

// Manager holds the registered plugins of one build and executes them in
// registration order.
type Manager struct {
	mu           sync.RWMutex
	transformers []entry[Transformer]
	filters      []entry[Filter]
	emitters     []entry[Emitter]
	logger       *slog.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Register adds p under the kind named by its descriptor. Registering a name
// that already exists in that kind replaces the earlier plugin in place,
// keeping its position.
func (m *Manager) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("cannot register nil plugin")
	}
	d := p.Descriptor()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid plugin descriptor: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch d.Kind {
	case KindTransformer:
		t, ok := p.(Transformer)
		if !ok {
			return fmt.Errorf("plugin %s declares kind %s but does not implement it", d.Name, d.Kind)
		}
		m.transformers = upsert(m.transformers, t)
	case KindFilter:
		f, ok := p.(Filter)
		if !ok {
			return fmt.Errorf("plugin %s declares kind %s but does not implement it", d.Name, d.Kind)
		}
		m.filters = upsert(m.filters, f)
	case KindEmitter:
		e, ok := p.(Emitter)
		if !ok {
			return fmt.Errorf("plugin %s declares kind %s but does not implement it", d.Name, d.Kind)
		}
		m.emitters = upsert(m.emitters, e)
	}
	return nil
}

func upsert[T Plugin](list []entry[T], p T) []entry[T] {
	name := p.Descriptor().Name
	for i := range list {
		if list[i].plugin.Descriptor().Name == name {
			list[i] = entry[T]{plugin: p, stats: &counter{}}
			return list
		}
	}
	return append(list, entry[T]{plugin: p, stats: &counter{}})
}

func (m *Manager) snapshot() ([]entry[Transformer], []entry[Filter], []entry[Emitter]) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entry[Transformer](nil), m.transformers...),
		append([]entry[Filter](nil), m.filters...),
		append([]entry[Emitter](nil), m.emitters...)
}

// Descriptors returns the registered descriptors of kind in execution order.
func (m *Manager) Descriptors(kind Kind) []Descriptor {
	ts, fs, es := m.snapshot()
	var out []Descriptor
	switch kind {
	case KindTransformer:
		for _, e := range ts {
			out = append(out, e.plugin.Descriptor())
		}
	case KindFilter:
		for _, e := range fs {
			out = append(out, e.plugin.Descriptor())
		}
	case KindEmitter:
		for _, e := range es {
			out = append(out, e.plugin.Descriptor())
		}
	}
	return out
}

// Transform runs every transformer on c. The first failure stops the chain
// for this document and is returned as a plugin error in the transform
// phase; parse errors keep their category.
func (m *Manager) Transform(ctx context.Context, pctx *Context, c *Content) error {
	ts, _, _ := m.snapshot()
	for _, e := range ts {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.plugin.Descriptor().Name
		if err := e.plugin.Transform(ctx, pctx, c); err != nil {
			e.stats.fail.Add(1)
			return transformError(name, c.Path, err)
		}
		e.stats.ok.Add(1)
	}
	return nil
}

func transformError(name string, file pathid.FilePath, err error) error {
	if ce, ok := derrors.AsClassified(err); ok && ce.Category() == derrors.CategoryParse {
		return ce.WithContext(derrors.ContextPlugin, name).
			WithContext(derrors.ContextFile, string(file)).
			WithContext(derrors.ContextPhase, derrors.PhaseTransform)
	}
	return derrors.PluginExecutionError(name, derrors.PhaseTransform, err).
		WithFile(string(file)).
		Build()
}

// FilterResult is the outcome of the filter stage.
type FilterResult struct {
	Published []*Content
	Dropped   []pathid.FilePath
	Failures  []Failure
}

// Filter evaluates every filter against every content. A document is
// published only if all filters accept it; a filter error counts as a
// rejection and is recorded for that plugin. Input order is preserved.
func (m *Manager) Filter(ctx context.Context, pctx *Context, contents []*Content) FilterResult {
	_, fs, _ := m.snapshot()
	res := FilterResult{Published: make([]*Content, 0, len(contents))}
	for _, c := range contents {
		publish := true
		for _, e := range fs {
			name := e.plugin.Descriptor().Name
			ok, err := e.plugin.ShouldPublish(ctx, pctx, c)
			if err != nil {
				e.stats.fail.Add(1)
				res.Failures = append(res.Failures, Failure{
					Plugin: name,
					Phase:  derrors.PhaseFilter,
					File:   c.Path,
					Err:    derrors.PluginExecutionError(name, derrors.PhaseFilter, err).WithFile(string(c.Path)).Build(),
				})
				publish = false
				continue
			}
			e.stats.ok.Add(1)
			if !ok {
				publish = false
			}
		}
		if publish {
			res.Published = append(res.Published, c)
		} else {
			res.Dropped = append(res.Dropped, c.Path)
		}
	}
	return res
}

// EmitResult is the outcome of the emitter stage.
type EmitResult struct {
	Artifacts []pathid.FullPath
	Failures  []Failure
}

// Emit runs every emitter with the same content set. An emitter failure is
// recorded and the remaining emitters still run. Artifacts of a failed
// emitter are kept.
func (m *Manager) Emit(ctx context.Context, pctx *Context, contents []*Content, res Resources) EmitResult {
	_, _, es := m.snapshot()
	var out EmitResult
	for _, e := range es {
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, Failure{Plugin: e.plugin.Descriptor().Name, Phase: derrors.PhaseEmit, Err: err})
			break
		}
		name := e.plugin.Descriptor().Name
		artifacts, err := e.plugin.Emit(ctx, pctx, contents, res)
		out.Artifacts = append(out.Artifacts, artifacts...)
		if err != nil {
			e.stats.fail.Add(1)
			m.logger.Warn("Emitter failed", logfields.Plugin(name), logfields.Error(err))
			var classified error = err
			if _, ok := derrors.AsClassified(err); !ok {
				classified = derrors.PluginExecutionError(name, derrors.PhaseEmit, err).Build()
			}
			out.Failures = append(out.Failures, Failure{Plugin: name, Phase: derrors.PhaseEmit, Err: classified})
			continue
		}
		e.stats.ok.Add(1)
		m.logger.Debug("Emitter finished", logfields.Plugin(name), logfields.Artifacts(len(artifacts)))
	}
	return out
}

// ExecuteResult is the outcome of Execute for a single document.
type ExecuteResult struct {
	Published bool
	Artifacts []pathid.FullPath
	Failures  []Failure
}

// Execute runs all three stages for one document: transformers, then filters,
// then, if published, every emitter with the single-element content set.
func (m *Manager) Execute(ctx context.Context, pctx *Context, c *Content, res Resources) (ExecuteResult, error) {
	if err := m.Transform(ctx, pctx, c); err != nil {
		return ExecuteResult{}, err
	}
	fr := m.Filter(ctx, pctx, []*Content{c})
	result := ExecuteResult{Failures: fr.Failures}
	if len(fr.Published) == 0 {
		return result, nil
	}
	result.Published = true
	er := m.Emit(ctx, pctx, fr.Published, res)
	result.Artifacts = er.Artifacts
	result.Failures = append(result.Failures, er.Failures...)
	return result, nil
}

// ResourceRequests returns the resources every registered emitter declares,
// tagged with the emitter name.
func (m *Manager) ResourceRequests() map[string][]ResourceRequest {
	_, _, es := m.snapshot()
	out := make(map[string][]ResourceRequest, len(es))
	for _, e := range es {
		if reqs := e.plugin.Resources(); len(reqs) > 0 {
			out[e.plugin.Descriptor().Name] = reqs
		}
	}
	return out
}

// Stats returns per plugin invocation counts in execution order.
func (m *Manager) Stats() []Stats {
	ts, fs, es := m.snapshot()
	var out []Stats
	add := func(d Descriptor, c *counter) {
		out = append(out, Stats{Name: d.Name, Kind: d.Kind, Succeeded: c.ok.Load(), Failed: c.fail.Load()})
	}
	for _, e := range ts {
		add(e.plugin.Descriptor(), e.stats)
	}
	for _, e := range fs {
		add(e.plugin.Descriptor(), e.stats)
	}
	for _, e := range es {
		add(e.plugin.Descriptor(), e.stats)
	}
	return out
}

// ResetStats zeroes all invocation counters.
func (m *Manager) ResetStats() {
	ts, fs, es := m.snapshot()
	for _, e := range ts {
		e.stats.ok.Store(0)
		e.stats.fail.Store(0)
	}
	for _, e := range fs {
		e.stats.ok.Store(0)
		e.stats.fail.Store(0)
	}
	for _, e := range es {
		e.stats.ok.Store(0)
		e.stats.fail.Store(0)
	}
}

type fingerprintEntry struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Options Options `json:"options,omitempty"`
}

// Fingerprint hashes the ordered transformer names, versions and options.
// Any change to the transformer configuration changes the fingerprint.
func (m *Manager) Fingerprint() string {
	ts, _, _ := m.snapshot()
	entries := make([]fingerprintEntry, 0, len(ts))
	for _, e := range ts {
		d := e.plugin.Descriptor()
		entries = append(entries, fingerprintEntry{Name: d.Name, Version: d.Version, Options: d.Options})
	}
	// encoding/json sorts map keys, so equal options always encode equally.
	data, err := json.Marshal(entries)
	if err != nil {
		data = fmt.Appendf(nil, "%v", entries)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
