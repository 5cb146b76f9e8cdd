package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpipe/internal/config"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

type appendTransformer struct {
	Base
	suffix string
	err    error
	calls  int
}

func newAppend(name, suffix string) *appendTransformer {
	return &appendTransformer{Base: NewBase(name, "1", KindTransformer, Options{"suffix": suffix}), suffix: suffix}
}

func (a *appendTransformer) Transform(_ context.Context, _ *Context, c *Content) error {
	a.calls++
	if a.err != nil {
		return a.err
	}
	c.HTML += a.suffix
	return nil
}

type predicateFilter struct {
	Base
	fn func(*Content) (bool, error)
}

func newFilter(name string, fn func(*Content) (bool, error)) *predicateFilter {
	return &predicateFilter{Base: NewBase(name, "1", KindFilter, nil), fn: fn}
}

func (f *predicateFilter) ShouldPublish(_ context.Context, _ *Context, c *Content) (bool, error) {
	return f.fn(c)
}

type recordingEmitter struct {
	Base
	seen []pathid.FilePath
	err  error
}

func newEmitter(name string) *recordingEmitter {
	return &recordingEmitter{Base: NewBase(name, "1", KindEmitter, nil)}
}

func (e *recordingEmitter) Emit(_ context.Context, pctx *Context, contents []*Content, _ Resources) ([]pathid.FullPath, error) {
	var out []pathid.FullPath
	for _, c := range contents {
		e.seen = append(e.seen, c.Path)
		out = append(out, pctx.OutputPath(pathid.FilePath(e.Descriptor().Name+"/"+string(c.Slug)+".html")))
	}
	return out, e.err
}

func (e *recordingEmitter) Resources() []ResourceRequest { return nil }

func testContext(t *testing.T) *Context {
	t.Helper()
	return &Context{OutputDir: pathid.FullPath(t.TempDir())}
}

func TestRegister_ReplacesInPlace(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Register(newAppend("a", "1")))
	require.NoError(t, m.Register(newAppend("b", "2")))
	require.NoError(t, m.Register(newAppend("a", "3")))

	ds := m.Descriptors(KindTransformer)
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].Name)
	assert.Equal(t, "3", ds[0].Options["suffix"])
	assert.Equal(t, "b", ds[1].Name)

	c := &Content{Path: "x.md"}
	require.NoError(t, m.Transform(context.Background(), testContext(t), c))
	assert.Equal(t, "32", c.HTML)
}

type kindLiar struct{ Base }

func TestRegister_Rejects(t *testing.T) {
	m := NewManager(nil)
	require.Error(t, m.Register(nil))
	require.Error(t, m.Register(&kindLiar{Base: NewBase("liar", "1", KindEmitter, nil)}))
	require.Error(t, m.Register(&kindLiar{Base: NewBase("", "1", KindFilter, nil)}))
	require.Error(t, m.Register(&kindLiar{Base: NewBase("x", "1", Kind("bogus"), nil)}))
}

func TestTransform_FirstFailureStopsChain(t *testing.T) {
	m := NewManager(nil)
	first := newAppend("first", "a")
	failing := newAppend("broken", "b")
	failing.err = errors.New("boom")
	last := newAppend("last", "c")
	for _, p := range []Plugin{first, failing, last} {
		require.NoError(t, m.Register(p))
	}

	err := m.Transform(context.Background(), testContext(t), &Content{Path: "docs/x.md"})
	require.Error(t, err)
	ce, ok := derrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, derrors.CategoryPlugin, ce.Category())
	assert.Equal(t, derrors.PhaseTransform, ce.Phase())
	assert.Equal(t, "broken", ce.Plugin())
	assert.Equal(t, "docs/x.md", ce.File())
	assert.Equal(t, 0, last.calls)

	stats := m.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, int64(1), stats[0].Succeeded)
	assert.Equal(t, int64(1), stats[1].Failed)
	assert.Equal(t, int64(0), stats[2].Succeeded+stats[2].Failed)

	m.ResetStats()
	assert.Equal(t, int64(0), m.Stats()[1].Failed)
}

func TestTransform_ParseErrorKeepsCategory(t *testing.T) {
	m := NewManager(nil)
	p := newAppend("parser", "")
	p.err = derrors.ParseError("bad frontmatter", errors.New("yaml")).Build()
	require.NoError(t, m.Register(p))

	err := m.Transform(context.Background(), testContext(t), &Content{Path: "a.md"})
	ce, ok := derrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, derrors.CategoryParse, ce.Category())
	assert.Equal(t, "parser", ce.Plugin())
	assert.Equal(t, "a.md", ce.File())
}

func TestTransform_Canceled(t *testing.T) {
	m := NewManager(nil)
	p := newAppend("a", "x")
	require.NoError(t, m.Register(p))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Transform(ctx, testContext(t), &Content{}), context.Canceled)
	assert.Equal(t, 0, p.calls)
}

func TestFilter_AllMustAccept(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Register(newFilter("not-draft", func(c *Content) (bool, error) { return !c.Bool("draft"), nil })))
	require.NoError(t, m.Register(newFilter("fails-on-b", func(c *Content) (bool, error) {
		if c.Path == "b.md" {
			return false, errors.New("cannot decide")
		}
		return true, nil
	})))

	contents := []*Content{
		{Path: "a.md"},
		{Path: "b.md"},
		{Path: "c.md", FrontMatter: map[string]any{"draft": true}},
	}
	res := m.Filter(context.Background(), testContext(t), contents)
	require.Len(t, res.Published, 1)
	assert.Equal(t, pathid.FilePath("a.md"), res.Published[0].Path)
	assert.Equal(t, []pathid.FilePath{"b.md", "c.md"}, res.Dropped)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "fails-on-b", res.Failures[0].Plugin)
	assert.Equal(t, derrors.PhaseFilter, res.Failures[0].Phase)
	assert.Equal(t, pathid.FilePath("b.md"), res.Failures[0].File)
}

func TestEmit_FailureDoesNotStopSiblings(t *testing.T) {
	m := NewManager(nil)
	broken := newEmitter("broken")
	broken.err = errors.New("disk full")
	ok := newEmitter("ok")
	require.NoError(t, m.Register(broken))
	require.NoError(t, m.Register(ok))

	pctx := testContext(t)
	contents := []*Content{{Path: "a.md", Slug: "a"}}
	res := m.Emit(context.Background(), pctx, contents, nil)

	assert.Equal(t, []pathid.FilePath{"a.md"}, ok.seen)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "broken", res.Failures[0].Plugin)
	assert.True(t, derrors.HasCategory(res.Failures[0].Err, derrors.CategoryPlugin))
	assert.Len(t, res.Artifacts, 2)
	assert.Equal(t, pathid.FullPath(filepath.Join(string(pctx.OutputDir), "ok", "a.html")), res.Artifacts[1])
}

func TestExecute(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Register(newAppend("t", "!")))
	require.NoError(t, m.Register(newFilter("only-a", func(c *Content) (bool, error) { return c.Path == "a.md", nil })))
	e := newEmitter("e")
	require.NoError(t, m.Register(e))

	res, err := m.Execute(context.Background(), testContext(t), &Content{Path: "a.md", Slug: "a"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Published)
	assert.Len(t, res.Artifacts, 1)

	res, err = m.Execute(context.Background(), testContext(t), &Content{Path: "b.md", Slug: "b"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Published)
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, []pathid.FilePath{"a.md"}, e.seen)
}

func TestFingerprint(t *testing.T) {
	build := func(opts ...Options) *Manager {
		m := NewManager(nil)
		for i, o := range opts {
			name := string(rune('a' + i))
			require.NoError(t, m.Register(&appendTransformer{Base: NewBase(name, "1", KindTransformer, o)}))
		}
		return m
	}

	base := build(Options{"x": 1, "y": "z"}, Options{})
	same := build(Options{"y": "z", "x": 1}, Options{})
	changed := build(Options{"x": 2, "y": "z"}, Options{})

	assert.Equal(t, base.Fingerprint(), same.Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())
	assert.Len(t, base.Fingerprint(), 64)

	// filters and emitters do not participate
	require.NoError(t, same.Register(newEmitter("e")))
	assert.Equal(t, base.Fingerprint(), same.Fingerprint())
}

func TestCatalogBuild(t *testing.T) {
	cat := NewCatalog()
	cat.Add(KindTransformer, "append", func(o Options) (Plugin, error) {
		return &appendTransformer{Base: NewBase("append", "1", KindTransformer, o), suffix: o.String("suffix", "")}, nil
	})
	cat.Add(KindEmitter, "rec", func(Options) (Plugin, error) { return newEmitter("rec"), nil })
	cat.Add(KindFilter, "wrong-kind", func(Options) (Plugin, error) { return newEmitter("wrong-kind"), nil })
	cat.Add(KindFilter, "needs-option", func(o Options) (Plugin, error) {
		if _, err := o.OneOf("mode", "", "a", "b"); err != nil {
			return nil, err
		}
		return newFilter("needs-option", func(*Content) (bool, error) { return true, nil }), nil
	})

	m, err := cat.Build(config.PluginsConfig{
		Transformers: []config.PluginSpec{{Name: "append", Options: map[string]any{"suffix": "!"}}},
		Emitters:     []config.PluginSpec{{Name: "rec"}},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, m.Descriptors(KindTransformer), 1)
	assert.Len(t, m.Descriptors(KindEmitter), 1)
	assert.Equal(t, []string{"needs-option", "wrong-kind"}, cat.Names(KindFilter))

	for _, specs := range []config.PluginsConfig{
		{Filters: []config.PluginSpec{{Name: "unknown"}}},
		{Filters: []config.PluginSpec{{Name: "wrong-kind"}}},
		{Filters: []config.PluginSpec{{Name: "needs-option", Options: map[string]any{"mode": "c"}}}},
	} {
		_, err := cat.Build(specs, nil)
		require.Error(t, err)
		assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
	}
}

func TestOptions(t *testing.T) {
	o := Options{"s": "v", "b": true, "i": 3, "f": float64(4), "l": []any{"a", 1}, "d": "2s"}
	assert.Equal(t, "v", o.String("s", "x"))
	assert.Equal(t, "x", o.String("missing", "x"))
	assert.True(t, o.Bool("b", false))
	assert.Equal(t, 3, o.Int("i", 0))
	assert.Equal(t, 4, o.Int("f", 0))
	assert.Equal(t, []string{"a", "1"}, o.Strings("l", nil))
	assert.Equal(t, []string{"v"}, o.Strings("s", nil))
	assert.Equal(t, "2s", o.Duration("d", 0).String())
}

func TestContentClone(t *testing.T) {
	c := &Content{Path: "a.md", Tags: []string{"x"}, FrontMatter: map[string]any{"nested": map[string]any{"k": 1}}}
	cp := c.Clone()
	cp.Tags[0] = "y"
	cp.FrontMatter["nested"].(map[string]any)["k"] = 2
	assert.Equal(t, "x", c.Tags[0])
	assert.Equal(t, 1, c.FrontMatter["nested"].(map[string]any)["k"])
}
