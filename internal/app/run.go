package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vlk/flowver/internal/analysis"
	"github.com/vlk/flowver/internal/ctxlog"
)

// lockFileName is the report the bundling pipeline consumes.
const lockFileName = "versions.lock"

// Run executes a full version computation based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	flows := a.model.Flows()
	inputs := make([]analysis.FlowInput, 0, len(flows))
	for _, flow := range flows {
		inputs = append(inputs, analysis.FlowInput{Alias: flow.Alias, Path: flow.Path})
	}
	a.logger.Debug("Flow inputs assembled.", "count", len(inputs), "workers", appConfig.WorkerCount)

	analyzer := analysis.New(a.registry, appConfig.WorkerCount)
	result, err := analyzer.Run(ctx, inputs)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	a.logger.Debug("Analysis finished.", "flows", len(result.Versions), "warnings", len(result.Warnings))

	a.crossCheckDeclaredMinimums(result)

	lockPath := a.lockPath(appConfig)
	if err := writeLockFile(lockPath, result.Versions); err != nil {
		return fmt.Errorf("writing %s: %w", lockFileName, err)
	}
	a.logger.Info("Version lock written.", "path", lockPath)

	a.printSummary(result)
	return nil
}

// crossCheckDeclaredMinimums compares each flow's declared minimum version
// against the computed one. The declared value is the author's expectation,
// not an input; a mismatch is worth a warning either way, since a declared
// value above the computed one over-restricts distribution and one below
// it under-reports the real requirement.
func (a *App) crossCheckDeclaredMinimums(result *analysis.Result) {
	for _, flow := range a.model.Flows() {
		if flow.DeclaredMin == nil {
			continue
		}
		computed, ok := result.Versions[flow.Alias]
		if !ok {
			continue
		}
		if computed.Min != *flow.DeclaredMin {
			a.logger.Warn("Declared minimum version does not match the computed one.",
				"flow", flow.Alias,
				"declared", *flow.DeclaredMin,
				"computed", computed.Min)
		}
	}
}

func (a *App) lockPath(appConfig *Config) string {
	if appConfig.OutputPath != "" {
		return appConfig.OutputPath
	}
	outDir := a.model.Settings.OutputDir
	if outDir == "" {
		outDir = "."
	}
	return filepath.Join(outDir, lockFileName)
}

func (a *App) printSummary(result *analysis.Result) {
	aliases := make([]string, 0, len(result.Versions))
	for alias := range result.Versions {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	fmt.Fprintf(a.outW, "Computed SDK versions for %d flow(s):\n", len(aliases))
	for _, alias := range aliases {
		fmt.Fprintf(a.outW, "  %-24s %s\n", alias, result.Versions[alias].String())
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(a.outW, "%d warning(s); see the log for details.\n", len(result.Warnings))
	}
}
