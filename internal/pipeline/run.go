package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docpipe/internal/cache"
	"git.home.luguber.info/inful/docpipe/internal/discovery"
	derrors "git.home.luguber.info/inful/docpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/docpipe/internal/graph"
	"git.home.luguber.info/inful/docpipe/internal/linkverify"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
	"git.home.luguber.info/inful/docpipe/internal/manifest"
	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
	"git.home.luguber.info/inful/docpipe/internal/recovery"
	"git.home.luguber.info/inful/docpipe/internal/workerpool"
)

// textfileWriter is implemented by recorders that can dump their registry.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// Run executes one build. Per-file and per-plugin failures do not fail the
// run; they are collected in the report, whose status becomes partial. The
// returned error is non-nil only for aborted and canceled builds, and the
// report is returned in every case.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.state.Current() == StateAborted {
		_ = p.state.Transition(StateIdle)
	}
	if req.Mode == "" {
		req.Mode = ModeIncremental
	}
	id := uuid.NewString()
	bc := &BuildContext{
		ID:      id,
		Request: req,
		Logger:  p.logger.With(logfields.BuildID(id)),
		Report:  newReport(id, req),
	}
	p.retries.Store(0)
	p.cache.ResetStats()
	p.plugins.ResetStats()
	if p.dates != nil {
		p.dates.Forget()
	}
	p.observer.OnBuildStart(id, req.Mode)
	bc.Logger.Info("Build started", slog.String("mode", string(req.Mode)), slog.Bool("force", req.Force))

	err := p.run(ctx, bc)
	return bc.Report, p.finish(ctx, bc, err)
}

func (p *Pipeline) run(ctx context.Context, bc *BuildContext) error {
	if err := p.state.Transition(StateDiscovering); err != nil {
		return derrors.InternalError(err.Error()).Build()
	}
	if err := p.discover(ctx, bc); err != nil {
		return err
	}
	if len(bc.Documents) == 0 && len(bc.Assets) == 0 {
		bc.Logger.Info("Nothing to build", logfields.Path(string(p.contentDir)))
		return p.state.Transition(StateFinalizing)
	}

	if err := p.state.Transition(StateProcessing); err != nil {
		return err
	}
	if err := p.process(ctx, bc); err != nil {
		return err
	}

	if err := p.state.Transition(StateFiltering); err != nil {
		return err
	}
	if err := p.filter(ctx, bc); err != nil {
		return err
	}

	if err := p.state.Transition(StateEmitting); err != nil {
		return err
	}
	if err := p.emit(ctx, bc); err != nil {
		return err
	}
	return p.state.Transition(StateFinalizing)
}

func (p *Pipeline) stage(bc *BuildContext, stage Stage, start time.Time, ok, failed int) {
	s := StageSummary{Stage: stage, Succeeded: ok, Failed: failed, Duration: time.Since(start)}
	bc.Report.Stages = append(bc.Report.Stages, s)
	p.observer.OnStageComplete(bc.ID, s)
	bc.Logger.Debug("Stage finished",
		logfields.Stage(string(stage)),
		slog.Int("succeeded", ok),
		slog.Int("failed", failed),
		logfields.Duration(s.Duration))
}

func (p *Pipeline) discover(ctx context.Context, bc *BuildContext) error {
	start := time.Now()
	files, err := discovery.Walk(ctx, p.contentDir, discovery.Options{
		Ignore:  p.cfg.Ignore,
		Exclude: []pathid.FullPath{p.outputDir, p.cacheDir},
		Logger:  bc.Logger,
	})
	if err != nil {
		p.stage(bc, StageDiscover, start, 0, 1)
		if ctx.Err() != nil {
			return derrors.Canceled(ctx.Err())
		}
		return derrors.BuildAbortError("discover content", err).WithContext(derrors.ContextPhase, derrors.PhaseDiscover).Build()
	}
	bc.Documents, bc.Assets = discovery.Split(files)
	bc.discovered = make(map[pathid.FilePath]struct{}, len(bc.Documents))
	for _, f := range bc.Documents {
		bc.discovered[f.Path] = struct{}{}
	}
	assets := make([]pathid.FilePath, len(bc.Assets))
	for i, a := range bc.Assets {
		assets[i] = a.Path
	}
	bc.Plugin = &plugin.Context{
		BuildID:    bc.ID,
		ContentDir: p.contentDir,
		OutputDir:  p.outputDir,
		Site:       p.cfg.Site,
		Assets:     assets,
		Logger:     bc.Logger,
	}

	r := bc.Report
	r.Files, r.Documents, r.Assets = len(files), len(bc.Documents), len(bc.Assets)
	p.stage(bc, StageDiscover, start, len(files), 0)
	bc.Logger.Info("Discovered content", logfields.Files(len(files)), slog.Int("documents", r.Documents), slog.Int("assets", r.Assets))
	return nil
}

type processed struct {
	content *plugin.Content
	hit     bool
}

func (p *Pipeline) processFile(bc *BuildContext) func(context.Context, discovery.File) (processed, error) {
	useCache := bc.useCache()
	return func(ctx context.Context, f discovery.File) (processed, error) {
		raw, err := os.ReadFile(string(f.Full)) // #nosec G304 -- discovered below the content root
		if err != nil {
			return processed{}, derrors.FileSystemError("read document", err).
				WithFile(string(f.Path)).
				WithContext(derrors.ContextPhase, derrors.PhaseRead).
				Build()
		}
		hash := cache.HashBytes(raw)
		if useCache {
			if c, ok := p.cache.Lookup(f.Path, hash); ok {
				p.recorder.IncCacheLookup(true)
				return processed{content: c, hit: true}, nil
			}
			p.recorder.IncCacheLookup(false)
		}
		c := plugin.NewContent(f.Path, string(hash), raw)
		if err := p.plugins.Transform(ctx, bc.Plugin, c); err != nil {
			return processed{}, err
		}
		p.cache.Store(f.Path, hash, c)
		return processed{content: c}, nil
	}
}

func (p *Pipeline) process(ctx context.Context, bc *BuildContext) error {
	start := time.Now()
	r := bc.Report
	n := len(bc.Documents)
	r.Workers = 1
	if p.pool.ShouldParallelize(n) {
		r.Parallel = true
		r.Workers = p.pool.Workers()
		size := p.pool.ChunkSizeFor(n)
		r.Chunks = (n + size - 1) / size
	} else if n > 0 {
		r.Chunks = 1
	}

	results, runErr := workerpool.Run(ctx, p.pool, bc.Documents, p.processFile(bc))

	byPath := make(map[pathid.FilePath]*plugin.Content, n)
	failed := 0
	for _, res := range results {
		switch {
		case res.Skipped:
			continue
		case res.Err != nil:
			failed++
			p.recordItemFailure(bc, res.Item.Path, res.Err)
			continue
		}
		if res.Value.hit {
			r.CacheHits++
		} else {
			r.CacheMisses++
			r.Processed++
		}
		byPath[res.Item.Path] = res.Value.content
	}
	p.stage(bc, StageProcess, start, len(byPath), failed)

	if runErr != nil {
		if recovery.IsAbort(runErr) {
			return runErr
		}
		return derrors.Canceled(runErr)
	}

	paths := make([]pathid.FilePath, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	seen := make(map[pathid.Slug]pathid.FilePath, len(paths))
	bc.Contents = make([]*plugin.Content, 0, len(paths))
	for _, path := range paths {
		c := byPath[path]
		if prev, dup := seen[c.Slug]; dup {
			err := fmt.Errorf("slug %q of %s already used by %s", c.Slug, path, prev)
			r.Warnings = append(r.Warnings, err)
			bc.Logger.Warn("Duplicate slug; document skipped", logfields.File(string(path)), logfields.Slug(string(c.Slug)))
			continue
		}
		seen[c.Slug] = path
		bc.Contents = append(bc.Contents, c)
	}
	bc.Logger.Info("Processed documents",
		logfields.Files(n),
		slog.Int("cache_hits", r.CacheHits),
		slog.Int("transformed", r.Processed),
		slog.Int("failed", failed),
		slog.Bool("parallel", r.Parallel))
	return nil
}

func (p *Pipeline) recordItemFailure(bc *BuildContext, file pathid.FilePath, err error) {
	f := Failure{File: file, Phase: derrors.PhaseTransform, Err: err}
	if ce, ok := derrors.AsClassified(err); ok {
		f.Plugin = ce.Plugin()
		if ph := ce.Phase(); ph != "" {
			f.Phase = ph
		}
	}
	bc.Report.addFailure(f)
	bc.Logger.Warn("Document failed",
		logfields.File(string(file)),
		logfields.Plugin(f.Plugin),
		logfields.Phase(string(f.Phase)),
		logfields.Error(err))
}

func (p *Pipeline) filter(ctx context.Context, bc *BuildContext) error {
	start := time.Now()
	res := p.plugins.Filter(ctx, bc.Plugin, bc.Contents)
	if err := ctx.Err(); err != nil {
		p.stage(bc, StageFilter, start, 0, 0)
		return derrors.Canceled(err)
	}
	for _, f := range res.Failures {
		bc.Report.addFailure(Failure{File: f.File, Plugin: f.Plugin, Phase: f.Phase, Err: f.Err})
	}
	bc.Published = res.Published
	bc.Report.Published = len(res.Published)
	bc.Report.Filtered = len(res.Dropped)
	p.stage(bc, StageFilter, start, len(res.Published), len(res.Failures))
	for _, path := range res.Dropped {
		bc.Logger.Debug("Document filtered", logfields.File(string(path)))
	}
	return nil
}

func (p *Pipeline) emit(ctx context.Context, bc *BuildContext) error {
	start := time.Now()
	if err := p.prepareOutput(bc); err != nil {
		p.stage(bc, StageEmit, start, 0, 1)
		return err
	}

	bc.Graph = buildGraph(bc.Published)
	bc.Plugin.Graph = bc.Graph
	for _, u := range bc.Graph.Unresolved() {
		warn := derrors.LinkResolutionError(string(u.Source), u.Target).WithFile(string(u.File)).Build()
		bc.Report.Warnings = append(bc.Report.Warnings, warn)
		bc.Logger.Debug("Unresolved link", logfields.File(string(u.File)), logfields.Target(u.Target))
	}
	if n := len(bc.Graph.Unresolved()); n > 0 {
		bc.Logger.Warn("Unresolved links", slog.Int("count", n))
		if p.publisher != nil {
			sent, err := linkverify.Notify(ctx, p.publisher, bc.ID, bc.Graph, bc.Logger)
			if err != nil {
				bc.Report.Warnings = append(bc.Report.Warnings, err)
			}
			bc.Logger.Debug("Published broken link events", slog.Int("sent", sent))
		}
	}

	res := p.loadResources(ctx, bc)
	er := p.plugins.Emit(ctx, bc.Plugin, bc.Published, res)
	bc.Artifacts = er.Artifacts
	for _, f := range er.Failures {
		bc.Report.addFailure(Failure{Plugin: f.Plugin, Phase: f.Phase, Err: f.Err})
	}
	p.stage(bc, StageEmit, start, len(er.Artifacts), len(er.Failures))
	if err := ctx.Err(); err != nil {
		return derrors.Canceled(err)
	}
	for _, f := range er.Failures {
		if recovery.IsAbort(f.Err) {
			return f.Err
		}
	}
	bc.Logger.Info("Emitted artifacts", logfields.Artifacts(len(er.Artifacts)), slog.Int("published", len(bc.Published)))
	return nil
}

// prepareOutput clears the output folder for full clean builds and checks
// that it is writable.
func (p *Pipeline) prepareOutput(bc *BuildContext) error {
	dir := string(p.outputDir)
	if bc.Request.Mode == ModeFull && p.cfg.Build.CleanOutput {
		if err := os.RemoveAll(dir); err != nil {
			return derrors.BuildAbortError("clean output directory", err).WithContext(derrors.ContextPath, dir).Build()
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- published site root
		return derrors.BuildAbortError("output directory is not writable", err).WithContext(derrors.ContextPath, dir).Build()
	}
	probe, err := os.CreateTemp(dir, ".docpipe-probe-*")
	if err != nil {
		return derrors.BuildAbortError("output directory is not writable", err).WithContext(derrors.ContextPath, dir).Build()
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func buildGraph(contents []*plugin.Content) *graph.Graph {
	docs := make([]graph.Document, len(contents))
	for i, c := range contents {
		docs[i] = graph.Document{
			Path:        c.Path,
			Slug:        c.Slug,
			Title:       c.Title,
			Description: c.Description,
			Links:       c.Links,
			Tags:        c.Tags,
			Aliases:     c.Aliases,
			Text:        c.Text,
		}
	}
	return graph.Build(docs)
}

// loadResources loads every resource the emitters declared, once per name.
// Recoverable load failures are retried; a resource that still fails is
// left out and the emitter needing it reports the failure.
func (p *Pipeline) loadResources(ctx context.Context, bc *BuildContext) plugin.Resources {
	byEmitter := p.plugins.ResourceRequests()
	names := make([]string, 0, len(byEmitter))
	for n := range byEmitter {
		names = append(names, n)
	}
	sort.Strings(names)

	res := plugin.Resources{}
	paths := map[string]string{}
	for _, emitter := range names {
		for _, req := range byEmitter[emitter] {
			if prev, ok := paths[req.Name]; ok {
				if prev != req.Path {
					bc.Logger.Warn("Conflicting resource paths; first wins",
						logfields.Plugin(emitter), slog.String("resource", req.Name),
						slog.String("kept", prev), slog.String("ignored", req.Path))
				}
				continue
			}
			paths[req.Name] = req.Path
			err := p.recovery.Attempt(ctx, "resource "+req.Name, func(ctx context.Context) error {
				data, err := p.loader.Load(ctx, req)
				if err != nil {
					return err
				}
				res[req.Name] = data
				return nil
			})
			if err != nil {
				bc.Report.Warnings = append(bc.Report.Warnings, err)
				bc.Logger.Warn("Resource unavailable", logfields.Plugin(emitter), slog.String("resource", req.Name), logfields.Error(err))
			}
		}
	}
	bc.Report.Retries = int(p.retries.Load())
	return res
}

// finish runs finalization for every outcome and settles the report status.
func (p *Pipeline) finish(ctx context.Context, bc *BuildContext, runErr error) error {
	start := time.Now()
	r := bc.Report
	status := StatusSuccess
	switch {
	case runErr == nil:
	case recovery.Classify(runErr) == recovery.KindCanceled:
		status = StatusCanceled
	default:
		status = StatusAborted
		if !derrors.HasCategory(runErr, derrors.CategoryAbort) {
			runErr = derrors.BuildAbortError("build aborted", runErr).Build()
		}
	}

	// Persist what was processed even when the build stopped early.
	fctx := context.WithoutCancel(ctx)
	failed := 0
	// An empty content tree leaves the cache untouched.
	empty := len(bc.Documents) == 0 && len(bc.Assets) == 0
	if status == StatusSuccess && bc.discovered != nil && !empty {
		if n := p.cache.Prune(bc.discovered); n > 0 {
			bc.Logger.Debug("Pruned cache entries", slog.Int("removed", n))
		}
	}
	if err := p.recovery.Attempt(fctx, "cache flush", func(ctx context.Context) error {
		if err := p.cache.Flush(ctx); err != nil {
			return derrors.CacheError("flush build cache", err).Build()
		}
		return nil
	}); err != nil {
		failed++
		r.Warnings = append(r.Warnings, err)
		bc.Logger.Warn("Build cache not persisted", logfields.Error(err))
	}

	if status == StatusSuccess && bc.discovered != nil {
		if err := p.writeManifest(bc); err != nil {
			failed++
			r.addFailure(Failure{Phase: derrors.PhaseFinalize, Err: err})
		}
	}
	r.Artifacts = bc.Artifacts
	r.Retries = int(p.retries.Load())
	r.Plugins = p.plugins.Stats()
	if bc.discovered != nil {
		p.stage(bc, StageFinalize, start, 1, failed)
	}

	if status == StatusSuccess && len(r.Failures) > 0 {
		status = StatusPartial
	}
	r.Status = status
	r.End = time.Now()

	if runErr == nil {
		_ = p.state.Transition(StateIdle)
	} else {
		_ = p.state.Transition(StateAborted)
	}

	p.observer.OnBuildComplete(r)
	if tf := p.cfg.Metrics.Textfile; tf != "" {
		if w, ok := p.recorder.(textfileWriter); ok {
			if err := w.WriteTextfile(tf); err != nil {
				bc.Logger.Warn("Failed to write metrics textfile", logfields.Path(tf), logfields.Error(err))
			}
		}
	}

	bc.Logger.Info("Build finished",
		slog.String("status", string(status)),
		logfields.Files(r.Documents),
		slog.Int("cache_hits", r.CacheHits),
		slog.Int("cache_misses", r.CacheMisses),
		logfields.Artifacts(len(r.Artifacts)),
		slog.Int("failures", len(r.Failures)),
		slog.Int("warnings", len(r.Warnings)),
		logfields.Duration(r.Duration()))
	return runErr
}

// writeManifest records the artifacts of this build and deletes artifacts the
// previous build produced that this one did not.
func (p *Pipeline) writeManifest(bc *BuildContext) error {
	prev, err := manifest.Read(p.outputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		bc.Logger.Debug("Previous manifest unreadable", logfields.Error(err))
	}
	if bc.Graph == nil && prev == nil {
		// Nothing was emitted now or before; keep the output directory absent.
		return nil
	}

	plugins := make([]manifest.PluginVersion, 0)
	for _, kind := range []plugin.Kind{plugin.KindTransformer, plugin.KindFilter, plugin.KindEmitter} {
		for _, d := range p.plugins.Descriptors(kind) {
			plugins = append(plugins, manifest.PluginVersion{Name: d.Name, Version: d.Version, Kind: string(d.Kind)})
		}
	}
	m, err := manifest.New(p.outputDir, bc.Artifacts, plugins)
	if err != nil {
		return derrors.FileSystemError("hash artifacts", err).Build()
	}

	if prev != nil {
		current := make(map[pathid.FilePath]struct{}, len(m.Artifacts))
		for _, a := range m.Artifacts {
			current[a.Path] = struct{}{}
		}
		for _, a := range prev.Artifacts {
			if _, ok := current[a.Path]; ok {
				continue
			}
			full := a.Path.Join(p.outputDir)
			if err := os.Remove(string(full)); err != nil && !errors.Is(err, os.ErrNotExist) {
				bc.Logger.Warn("Failed to remove stale artifact", logfields.File(string(a.Path)), logfields.Error(err))
				continue
			}
			removeEmptyParents(filepath.Dir(string(full)), string(p.outputDir))
			bc.Report.Removed++
		}
	}

	if _, err := m.Write(p.outputDir); err != nil {
		return derrors.FileSystemError("write manifest", err).Build()
	}
	bc.Report.ManifestHash = m.Hash()
	return nil
}

func removeEmptyParents(dir, root string) {
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
