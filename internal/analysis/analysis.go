package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/vlk/flowver/internal/ctxlog"
	"github.com/vlk/flowver/internal/dag"
	"github.com/vlk/flowver/internal/interval"
	"github.com/vlk/flowver/internal/luadep"
	"github.com/vlk/flowver/internal/registry"
	"github.com/vlk/flowver/internal/resolver"
)

// FlowInput names one deliverable flow entry point for a run.
type FlowInput struct {
	Alias string
	Path  string
}

// Result is the outcome of a successful run: the resolved interval of
// every deliverable flow, keyed by alias, plus every non-fatal warning
// gathered across the transitive file set.
type Result struct {
	Versions map[string]interval.Interval
	Warnings []resolver.Warning
}

// Analyzer runs version computation over flow bundles.
type Analyzer struct {
	reg     *registry.Registry
	workers int
}

// New creates an Analyzer. workers bounds the parse/resolve pool; values
// below one are clamped to a single worker.
func New(reg *registry.Registry, workers int) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{reg: reg, workers: workers}
}

// fileInfo holds everything the run learned about one flow file.
type fileInfo struct {
	chunk    []ast.Stmt
	deps     []string
	own      interval.Interval
	warnings []resolver.Warning
}

// Run computes resolved version intervals for the given flows. Any fatal
// condition in any reachable file (parse failure, version conflict,
// unsupported conditional, dependency cycle) aborts the whole run.
func (a *Analyzer) Run(ctx context.Context, flows []FlowInput) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if len(flows) == 0 {
		return nil, errors.New("no flows to analyze")
	}

	files, err := a.discover(ctx, flows)
	if err != nil {
		return nil, err
	}
	logger.Debug("Flow closure discovered.", "files", len(files))

	if err := a.resolveAll(ctx, files); err != nil {
		return nil, err
	}

	graph := dag.New()
	for path := range files {
		graph.AddNode(path)
	}
	for _, path := range sortedPaths(files) {
		info := files[path]
		if err := graph.SetOwn(path, info.own); err != nil {
			return nil, err
		}
		for _, dep := range info.deps {
			if err := graph.AddDependency(path, dep); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	for _, flow := range flows {
		if err := graph.MarkTop(flow.Path); err != nil {
			return nil, err
		}
	}

	if err := graph.DetectCycles(); err != nil {
		return nil, err
	}
	if err := graph.Aggregate(ctx); err != nil {
		return nil, err
	}

	tops := graph.TopNodes()
	result := &Result{Versions: make(map[string]interval.Interval, len(flows))}
	for _, flow := range flows {
		iv, ok := tops[flow.Path]
		if !ok {
			return nil, fmt.Errorf("flow %q: no resolved interval for %s", flow.Alias, flow.Path)
		}
		result.Versions[flow.Alias] = iv
	}

	for _, path := range sortedPaths(files) {
		result.Warnings = append(result.Warnings, files[path].warnings...)
	}
	for _, w := range result.Warnings {
		logger.Warn("Analysis warning.", "path", w.Path, "line", w.Line, "name", w.Name, "message", w.Message)
	}
	return result, nil
}

// discover parses the transitive require closure, frontier by frontier.
// Dependencies only become known once their requirer is parsed, so each
// wave runs the unparsed frontier through the pool and seeds the next
// wave from the edges it reported.
func (a *Analyzer) discover(ctx context.Context, flows []FlowInput) (map[string]*fileInfo, error) {
	files := make(map[string]*fileInfo)
	seen := make(map[string]struct{})

	var frontier []string
	for _, flow := range flows {
		if _, ok := seen[flow.Path]; ok {
			continue
		}
		seen[flow.Path] = struct{}{}
		frontier = append(frontier, flow.Path)
	}

	for len(frontier) > 0 {
		parsed, err := a.parseWave(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, path := range frontier {
			info := parsed[path]
			files[path] = info
			for _, dep := range info.deps {
				if _, ok := seen[dep]; ok {
					continue
				}
				seen[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return files, nil
}

type parseResult struct {
	path string
	info *fileInfo
	err  error
}

// parseWave parses one frontier of files concurrently. Errors from every
// file in the wave are joined so one broken file does not mask another.
func (a *Analyzer) parseWave(ctx context.Context, paths []string) (map[string]*fileInfo, error) {
	logger := ctxlog.FromContext(ctx)
	jobs := make(chan string, len(paths))
	results := make(chan parseResult, len(paths))

	workers := min(a.workers, len(paths))
	for workerID := 0; workerID < workers; workerID++ {
		go func(workerID int) {
			for path := range jobs {
				logger.Debug("Parsing flow file.", "workerID", workerID, "path", path)
				info, err := a.parseFile(ctx, path)
				results <- parseResult{path: path, info: info, err: err}
			}
		}(workerID)
	}

	for _, path := range paths {
		jobs <- path
	}
	close(jobs)

	parsed := make(map[string]*fileInfo, len(paths))
	errByPath := make(map[string]error)
	for range paths {
		r := <-results
		if r.err != nil {
			errByPath[r.path] = r.err
			continue
		}
		parsed[r.path] = r.info
	}

	if len(errByPath) > 0 {
		errs := make([]error, 0, len(errByPath))
		for _, path := range sortedErrPaths(errByPath) {
			errs = append(errs, errByPath[path])
		}
		return nil, errors.Join(errs...)
	}
	return parsed, nil
}

func (a *Analyzer) parseFile(ctx context.Context, path string) (*fileInfo, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading flow file: %w", err)
	}

	chunk, err := parse.Parse(bytes.NewReader(src), path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &fileInfo{
		chunk: chunk,
		deps:  luadep.Collect(ctx, path, chunk),
	}, nil
}

// resolveAll computes every file's own interval across the pool. Files
// are independent at this stage; only aggregation needs the graph.
func (a *Analyzer) resolveAll(ctx context.Context, files map[string]*fileInfo) error {
	paths := sortedPaths(files)
	jobs := make(chan string, len(paths))
	results := make(chan parseResult, len(paths))

	workers := min(a.workers, len(paths))
	for workerID := 0; workerID < workers; workerID++ {
		go func() {
			for path := range jobs {
				info := files[path]
				own, warnings, err := resolver.Resolve(ctx, path, info.chunk, a.reg)
				info.own = own
				info.warnings = warnings
				results <- parseResult{path: path, err: err}
			}
		}()
	}

	for _, path := range paths {
		jobs <- path
	}
	close(jobs)

	errByPath := make(map[string]error)
	for range paths {
		r := <-results
		if r.err != nil {
			errByPath[r.path] = r.err
		}
	}

	if len(errByPath) > 0 {
		errs := make([]error, 0, len(errByPath))
		for _, path := range sortedErrPaths(errByPath) {
			errs = append(errs, errByPath[path])
		}
		return errors.Join(errs...)
	}
	return nil
}

func sortedPaths(files map[string]*fileInfo) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func sortedErrPaths(errs map[string]error) []string {
	paths := make([]string, 0, len(errs))
	for path := range errs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
